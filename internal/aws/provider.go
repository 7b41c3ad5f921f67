package aws

import (
	"context"

	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

// Provider describes AWS resources for one resolved profile.
type Provider struct {
	clients *ClientSet
	log     *telemetry.Logger
	workers int
}

// New resolves the profile's credentials and builds a provider over
// the resulting client set.
func New(ctx context.Context, profile *types.Profile, log *telemetry.Logger, workers int) (*Provider, error) {
	cfg, err := NewResolver().Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}
	return NewProvider(NewClientSet(cfg), log, workers), nil
}

// NewProvider wraps an existing client set.
func NewProvider(clients *ClientSet, log *telemetry.Logger, workers int) *Provider {
	if workers < 1 {
		workers = 1
	}
	return &Provider{
		clients: clients,
		log:     log,
		workers: workers,
	}
}

type describer struct {
	label string
	fn    func(context.Context) ([]types.ResourceRecord, error)
}

// describers is the fixed registry of inventory labels. Labels carry
// their category membership in the types package, so a label serving
// two category views still runs exactly once per full aggregation.
func (p *Provider) describers() []describer {
	return []describer{
		{types.LabelEC2Instances, p.describeInstances},
		{types.LabelEC2Volumes, p.describeVolumes},
		{types.LabelEC2AMIs, p.describeAMIs},
		{types.LabelEC2Snapshots, p.describeSnapshots},
		{types.LabelECSClusters, p.describeECSClusters},
		{types.LabelECSServices, p.describeECSServices},
		{types.LabelEKSClusters, p.describeEKSClusters},
		{types.LabelLambdaFunctions, p.describeLambdaFunctions},
		{types.LabelRDSInstances, p.describeRDSInstances},
		{types.LabelRDSClusters, p.describeRDSClusters},
		{types.LabelDynamoDBTables, p.describeDynamoDBTables},
		{types.LabelDocumentDBClusters, p.describeDocumentDBClusters},
		{types.LabelElastiCache, p.describeElastiCacheClusters},
		{types.LabelS3Buckets, p.describeS3Buckets},
		{types.LabelVPCs, p.describeVPCs},
		{types.LabelSubnets, p.describeSubnets},
		{types.LabelSecurityGroups, p.describeSecurityGroups},
		{types.LabelSecurityGroupRules, p.describeSecurityGroupRules},
		{types.LabelLoadBalancers, p.describeLoadBalancers},
		{types.LabelTargetGroups, p.describeTargetGroups},
		{types.LabelSQSQueues, p.describeSQSQueues},
		{types.LabelSNSTopics, p.describeSNSTopics},
		{types.LabelCloudFront, p.describeCloudFrontDistributions},
		{types.LabelAPIGatewayREST, p.describeRestAPIs},
		{types.LabelAPIGatewayHTTP, p.describeHTTPAPIs},
	}
}

// apiError logs a failed provider call and maps it onto the
// application taxonomy. Describers never swallow errors, absorption
// happens in the aggregator.
func (p *Provider) apiError(ctx context.Context, err error, service, operation string) error {
	p.log.WithContext(ctx).Error().
		Err(err).
		Str("aws_service", service).
		Str("operation", operation).
		Msg("provider call failed")
	return classify(err, service, operation)
}
