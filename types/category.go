package types

// Category is one of the fixed dashboard groupings.
type Category string

const (
	CategoryCompute   Category = "compute"
	CategoryData      Category = "data"
	CategoryCache     Category = "cache"
	CategoryStorage   Category = "storage"
	CategoryNetwork   Category = "network"
	CategoryMessaging Category = "messaging"
	CategoryCDN       Category = "cdn"
	CategoryAPI       Category = "api"
	CategoryService   Category = "service"
)

// Collection labels, one per describer. Load Balancers belongs to both
// the network and service views; in a full aggregation each label still
// appears exactly once.
const (
	LabelEC2Instances       = "EC2 Instances"
	LabelEC2Volumes         = "EC2 Volumes"
	LabelEC2AMIs            = "EC2 AMIs"
	LabelEC2Snapshots       = "EC2 Snapshots"
	LabelECSClusters        = "ECS Clusters"
	LabelECSServices        = "ECS Services"
	LabelEKSClusters        = "EKS Clusters"
	LabelLambdaFunctions    = "Lambda Functions"
	LabelRDSInstances       = "RDS Instances"
	LabelRDSClusters        = "RDS Clusters (Aurora)"
	LabelDynamoDBTables     = "DynamoDB Tables"
	LabelDocumentDBClusters = "DocumentDB Clusters"
	LabelElastiCache        = "ElastiCache Clusters"
	LabelS3Buckets          = "S3 Buckets"
	LabelVPCs               = "VPCs"
	LabelSubnets            = "Subnets"
	LabelSecurityGroups     = "Security Groups"
	LabelSecurityGroupRules = "Security Group Rules"
	LabelLoadBalancers      = "Load Balancers"
	LabelTargetGroups       = "Target Groups"
	LabelSQSQueues          = "SQS Queues"
	LabelSNSTopics          = "SNS Topics"
	LabelCloudFront         = "CloudFront Distributions"
	LabelAPIGatewayREST     = "API Gateway REST APIs"
	LabelAPIGatewayHTTP     = "API Gateway HTTP APIs"
)

// categoryGroups lists each category's labels in display order.
var categoryGroups = map[Category][]string{
	CategoryCompute: {
		LabelEC2Instances, LabelEC2Volumes, LabelEC2AMIs, LabelEC2Snapshots,
		LabelECSClusters, LabelECSServices, LabelEKSClusters, LabelLambdaFunctions,
	},
	CategoryData: {
		LabelRDSInstances, LabelRDSClusters, LabelDynamoDBTables, LabelDocumentDBClusters,
	},
	CategoryCache:   {LabelElastiCache},
	CategoryStorage: {LabelS3Buckets},
	CategoryNetwork: {
		LabelVPCs, LabelSubnets, LabelSecurityGroups, LabelSecurityGroupRules,
		LabelLoadBalancers,
	},
	CategoryMessaging: {LabelSQSQueues, LabelSNSTopics},
	CategoryCDN:       {LabelCloudFront},
	CategoryAPI:       {LabelAPIGatewayREST, LabelAPIGatewayHTTP},
	CategoryService:   {LabelLoadBalancers, LabelTargetGroups},
}

// categoryOrder fixes the display order of categories.
var categoryOrder = []Category{
	CategoryCompute, CategoryData, CategoryCache, CategoryStorage,
	CategoryNetwork, CategoryMessaging, CategoryCDN, CategoryAPI,
	CategoryService,
}

// Categories returns all categories in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// CategoryLabels returns the labels belonging to a category, or nil for
// an unknown category.
func CategoryLabels(c Category) []string {
	labels, ok := categoryGroups[c]
	if !ok {
		return nil
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := categoryGroups[c]
	return c, ok
}

// AllLabels returns every collection label exactly once, in category
// display order.
func AllLabels() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range categoryOrder {
		for _, label := range categoryGroups[c] {
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}
