package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeLoadBalancers(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.ELB.DescribeLoadBalancers(ctx, &elasticloadbalancingv2.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "elbv2", "DescribeLoadBalancers")
		}

		for _, lb := range output.LoadBalancers {
			state := ""
			if lb.State != nil {
				state = string(lb.State.Code)
			}
			records = append(records, types.ResourceRecord{
				"Name":          aws.ToString(lb.LoadBalancerName),
				"Scheme":        string(lb.Scheme),
				"State":         state,
				"Type":          string(lb.Type),
				"IpAddressType": string(lb.IpAddressType),
				"Arn":           aws.ToString(lb.LoadBalancerArn),
				"DNS Name":      aws.ToString(lb.DNSName),
			})
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeTargetGroups(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var marker *string

	for {
		output, err := p.clients.ELB.DescribeTargetGroups(ctx, &elasticloadbalancingv2.DescribeTargetGroupsInput{Marker: marker})
		if err != nil {
			return nil, p.apiError(ctx, err, "elbv2", "DescribeTargetGroups")
		}

		for _, group := range output.TargetGroups {
			records = append(records, p.convertTargetGroup(group))
		}

		if output.NextMarker == nil {
			break
		}
		marker = output.NextMarker
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) convertTargetGroup(group elbtypes.TargetGroup) types.ResourceRecord {
	path := "unknown"
	if group.HealthCheckPath != nil {
		path = aws.ToString(group.HealthCheckPath)
	}
	matcher := "unknown"
	if group.Matcher != nil && group.Matcher.HttpCode != nil {
		matcher = aws.ToString(group.Matcher.HttpCode)
	}

	return types.ResourceRecord{
		"Name":                      aws.ToString(group.TargetGroupName),
		"Protocol":                  string(group.Protocol),
		"Port":                      aws.ToInt32(group.Port),
		"Type":                      string(group.TargetType),
		"Vpc Id":                    aws.ToString(group.VpcId),
		"LB Arn":                    group.LoadBalancerArns,
		"Health Check Protocol":     string(group.HealthCheckProtocol),
		"Health Check Port":         aws.ToString(group.HealthCheckPort),
		"Health Check Path":         path,
		"Health Check HTTP Matcher": matcher,
	}
}
