package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeLambdaFunctions(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.Lambda.ListFunctions(ctx, &lambda.ListFunctionsInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "lambda", "ListFunctions")
		}

		for _, function := range output.Functions {
			records = append(records, p.convertFunction(function))
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertFunction(function lambdatypes.FunctionConfiguration) types.ResourceRecord {
	var storage int32
	if function.EphemeralStorage != nil {
		storage = aws.ToInt32(function.EphemeralStorage.Size)
	}

	return types.ResourceRecord{
		"Name":          aws.ToString(function.FunctionName),
		"Runtime":       string(function.Runtime),
		"Handler":       aws.ToString(function.Handler),
		"Memory":        aws.ToInt32(function.MemorySize),
		"Storage Size":  storage,
		"Package Type":  string(function.PackageType),
		"Last Modified": aws.ToString(function.LastModified),
	}
}

func (p *Provider) describeECSClusters(ctx context.Context) ([]types.ResourceRecord, error) {
	clusterArns, err := p.listECSClusterArns(ctx)
	if err != nil {
		return nil, err
	}
	if len(clusterArns) == 0 {
		return nil, nil
	}

	var records []types.ResourceRecord

	// DescribeClusters accepts at most 100 clusters per call.
	const batchSize = 100
	for i := 0; i < len(clusterArns); i += batchSize {
		end := i + batchSize
		if end > len(clusterArns) {
			end = len(clusterArns)
		}

		output, err := p.clients.ECS.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: clusterArns[i:end]})
		if err != nil {
			return nil, p.apiError(ctx, err, "ecs", "DescribeClusters")
		}

		for _, cluster := range output.Clusters {
			records = append(records, types.ResourceRecord{
				"Name":                           aws.ToString(cluster.ClusterName),
				"Status":                         aws.ToString(cluster.Status),
				"Running Tasks":                  cluster.RunningTasksCount,
				"Pending Tasks":                  cluster.PendingTasksCount,
				"Active Services":                cluster.ActiveServicesCount,
				"Registered Container Instances": cluster.RegisteredContainerInstancesCount,
			})
		}
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeECSServices(ctx context.Context) ([]types.ResourceRecord, error) {
	clusterArns, err := p.listECSClusterArns(ctx)
	if err != nil {
		return nil, err
	}

	var records []types.ResourceRecord
	for _, clusterArn := range clusterArns {
		serviceArns, err := p.listECSServiceArns(ctx, clusterArn)
		if err != nil {
			return nil, err
		}
		if len(serviceArns) == 0 {
			continue
		}

		// DescribeServices accepts at most 10 services per call.
		const batchSize = 10
		for i := 0; i < len(serviceArns); i += batchSize {
			end := i + batchSize
			if end > len(serviceArns) {
				end = len(serviceArns)
			}

			output, err := p.clients.ECS.DescribeServices(ctx, &ecs.DescribeServicesInput{
				Cluster:  aws.String(clusterArn),
				Services: serviceArns[i:end],
			})
			if err != nil {
				return nil, p.apiError(ctx, err, "ecs", "DescribeServices")
			}

			for _, service := range output.Services {
				records = append(records, p.convertECSService(service))
			}
		}
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertECSService(service ecstypes.Service) types.ResourceRecord {
	return types.ResourceRecord{
		"Name":          aws.ToString(service.ServiceName),
		"Status":        aws.ToString(service.Status),
		"Desired Count": service.DesiredCount,
		"Running Count": service.RunningCount,
		"Pending Count": service.PendingCount,
		"Launch Type":   string(service.LaunchType),
	}
}

func (p *Provider) listECSClusterArns(ctx context.Context) ([]string, error) {
	var clusterArns []string
	var nextToken *string

	for {
		output, err := p.clients.ECS.ListClusters(ctx, &ecs.ListClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "ecs", "ListClusters")
		}
		clusterArns = append(clusterArns, output.ClusterArns...)

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return clusterArns, nil
}

func (p *Provider) listECSServiceArns(ctx context.Context, clusterArn string) ([]string, error) {
	var serviceArns []string
	var nextToken *string

	for {
		output, err := p.clients.ECS.ListServices(ctx, &ecs.ListServicesInput{
			Cluster:   aws.String(clusterArn),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, p.apiError(ctx, err, "ecs", "ListServices")
		}
		serviceArns = append(serviceArns, output.ServiceArns...)

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return serviceArns, nil
}

func (p *Provider) describeEKSClusters(ctx context.Context) ([]types.ResourceRecord, error) {
	var names []string
	var nextToken *string

	for {
		output, err := p.clients.EKS.ListClusters(ctx, &eks.ListClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "eks", "ListClusters")
		}
		names = append(names, output.Clusters...)

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	var records []types.ResourceRecord
	for _, name := range names {
		output, err := p.clients.EKS.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
		if err != nil {
			return nil, p.apiError(ctx, err, "eks", "DescribeCluster")
		}
		if output.Cluster == nil {
			continue
		}

		cluster := output.Cluster
		records = append(records, types.ResourceRecord{
			"Name":       aws.ToString(cluster.Name),
			"Status":     string(cluster.Status),
			"Version":    aws.ToString(cluster.Version),
			"Endpoint":   aws.ToString(cluster.Endpoint),
			"Role Arn":   aws.ToString(cluster.RoleArn),
			"Created At": formatTime(cluster.CreatedAt),
		})
	}

	return sortByKey(records, "Name"), nil
}
