package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeCloudFrontDistributions(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.CloudFront.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "cloudfront", "ListDistributions")
		}
		if output.DistributionList == nil {
			break
		}

		for _, distribution := range output.DistributionList.Items {
			records = append(records, p.convertDistribution(distribution))
		}

		if !aws.ToBool(output.DistributionList.IsTruncated) {
			break
		}
		marker = output.DistributionList.NextMarker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertDistribution(distribution cftypes.DistributionSummary) types.ResourceRecord {
	origin := "—"
	if distribution.Origins != nil && len(distribution.Origins.Items) > 0 {
		origin = aws.ToString(distribution.Origins.Items[0].DomainName)
	}

	return types.ResourceRecord{
		"Name":    aws.ToString(distribution.Id),
		"Domain":  aws.ToString(distribution.DomainName),
		"Status":  aws.ToString(distribution.Status),
		"Enabled": aws.ToBool(distribution.Enabled),
		"Origin":  origin,
	}
}

func (p *Provider) describeRestAPIs(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var position *string

	for {
		output, err := p.clients.APIGateway.GetRestApis(ctx, &apigateway.GetRestApisInput{Position: position})
		if err != nil {
			return nil, p.apiError(ctx, err, "apigateway", "GetRestApis")
		}

		for _, api := range output.Items {
			description := aws.ToString(api.Description)
			if description == "" {
				description = "—"
			}
			records = append(records, types.ResourceRecord{
				"Name":        aws.ToString(api.Name),
				"Id":          aws.ToString(api.Id),
				"Description": description,
				"Created":     formatTimeOr(api.CreatedDate, "—"),
			})
		}

		if output.Position == nil {
			break
		}
		position = output.Position
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeHTTPAPIs(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.APIGatewayV2.GetApis(ctx, &apigatewayv2.GetApisInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "apigatewayv2", "GetApis")
		}

		for _, api := range output.Items {
			protocol := string(api.ProtocolType)
			if protocol == "" {
				protocol = "—"
			}
			endpoint := aws.ToString(api.ApiEndpoint)
			if endpoint == "" {
				endpoint = "—"
			}
			records = append(records, types.ResourceRecord{
				"Name":     aws.ToString(api.Name),
				"Api Id":   aws.ToString(api.ApiId),
				"Protocol": protocol,
				"Endpoint": endpoint,
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}
