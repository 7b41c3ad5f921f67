package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/docdb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeRDSInstances(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.RDS.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "rds", "DescribeDBInstances")
		}

		for _, instance := range output.DBInstances {
			records = append(records, p.convertDBInstance(instance))
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertDBInstance(instance rdstypes.DBInstance) types.ResourceRecord {
	endpoint := "—"
	var port any = "—"
	if instance.Endpoint != nil {
		endpoint = aws.ToString(instance.Endpoint.Address)
		port = aws.ToInt32(instance.Endpoint.Port)
	}

	return types.ResourceRecord{
		"Name":          aws.ToString(instance.DBInstanceIdentifier),
		"Engine":        aws.ToString(instance.Engine),
		"Status":        aws.ToString(instance.DBInstanceStatus),
		"Class":         aws.ToString(instance.DBInstanceClass),
		"Storage":       aws.ToInt32(instance.AllocatedStorage),
		"Multi AZ":      aws.ToBool(instance.MultiAZ),
		"Public Access": aws.ToBool(instance.PubliclyAccessible),
		"Endpoint":      endpoint,
		"Port":          port,
	}
}

func (p *Provider) describeRDSClusters(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.RDS.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "rds", "DescribeDBClusters")
		}

		for _, cluster := range output.DBClusters {
			endpoint := "—"
			if cluster.Endpoint != nil {
				endpoint = aws.ToString(cluster.Endpoint)
			}
			var port any = "—"
			if cluster.Port != nil {
				port = aws.ToInt32(cluster.Port)
			}
			records = append(records, types.ResourceRecord{
				"Name":     aws.ToString(cluster.DBClusterIdentifier),
				"Engine":   aws.ToString(cluster.Engine),
				"Status":   aws.ToString(cluster.Status),
				"Endpoint": endpoint,
				"Port":     port,
			})
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeDynamoDBTables(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var startTable *string

	for {
		output, err := p.clients.DynamoDB.ListTables(ctx, &dynamodb.ListTablesInput{ExclusiveStartTableName: startTable})
		if err != nil {
			return nil, p.apiError(ctx, err, "dynamodb", "ListTables")
		}

		for _, name := range output.TableNames {
			records = append(records, types.ResourceRecord{"Name": name})
		}

		if output.LastEvaluatedTableName == nil {
			break
		}
		startTable = output.LastEvaluatedTableName
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeDocumentDBClusters(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.DocDB.DescribeDBClusters(ctx, &docdb.DescribeDBClustersInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "docdb", "DescribeDBClusters")
		}

		for _, cluster := range output.DBClusters {
			endpoint := "—"
			if cluster.Endpoint != nil {
				endpoint = aws.ToString(cluster.Endpoint)
			}
			var port any = "—"
			if cluster.Port != nil {
				port = aws.ToInt32(cluster.Port)
			}
			records = append(records, types.ResourceRecord{
				"Name":     aws.ToString(cluster.DBClusterIdentifier),
				"Engine":   aws.ToString(cluster.Engine),
				"Status":   aws.ToString(cluster.Status),
				"Endpoint": endpoint,
				"Port":     port,
			})
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeElastiCacheClusters(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.ElastiCache.DescribeCacheClusters(ctx, &elasticache.DescribeCacheClustersInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "elasticache", "DescribeCacheClusters")
		}

		for _, cluster := range output.CacheClusters {
			records = append(records, types.ResourceRecord{
				"Name":      aws.ToString(cluster.CacheClusterId),
				"Engine":    aws.ToString(cluster.Engine),
				"Status":    aws.ToString(cluster.CacheClusterStatus),
				"Node Type": aws.ToString(cluster.CacheNodeType),
				"Nodes":     aws.ToInt32(cluster.NumCacheNodes),
			})
		}

		if output.Marker == nil {
			break
		}
		marker = output.Marker
	}

	return sortByKey(records, "Name"), nil
}
