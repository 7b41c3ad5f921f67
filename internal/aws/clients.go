// Package aws resolves profile credentials into sessions and describes
// the AWS resources cloudscope inventories.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/docdb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/types"
)

// ClientSet holds one client per inventoried service, all built from
// the same resolved credentials.
type ClientSet struct {
	EC2          EC2API
	ELB          ELBAPI
	Lambda       LambdaAPI
	DynamoDB     DynamoDBAPI
	RDS          RDSAPI
	DocDB        DocDBAPI
	ElastiCache  ElastiCacheAPI
	ECS          ECSAPI
	EKS          EKSAPI
	SQS          SQSAPI
	SNS          SNSAPI
	CloudFront   CloudFrontAPI
	APIGateway   APIGatewayAPI
	APIGatewayV2 APIGatewayV2API
	S3           S3API
	STS          STSAPI
}

// NewClientSet builds service clients from a resolved config.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		EC2:          ec2.NewFromConfig(cfg),
		ELB:          elasticloadbalancingv2.NewFromConfig(cfg),
		Lambda:       lambda.NewFromConfig(cfg),
		DynamoDB:     dynamodb.NewFromConfig(cfg),
		RDS:          rds.NewFromConfig(cfg),
		DocDB:        docdb.NewFromConfig(cfg),
		ElastiCache:  elasticache.NewFromConfig(cfg),
		ECS:          ecs.NewFromConfig(cfg),
		EKS:          eks.NewFromConfig(cfg),
		SQS:          sqs.NewFromConfig(cfg),
		SNS:          sns.NewFromConfig(cfg),
		CloudFront:   cloudfront.NewFromConfig(cfg),
		APIGateway:   apigateway.NewFromConfig(cfg),
		APIGatewayV2: apigatewayv2.NewFromConfig(cfg),
		S3:           s3.NewFromConfig(cfg),
		STS:          sts.NewFromConfig(cfg),
	}
}

// Resolver turns a stored profile into an AWS config, assuming a role
// first when the profile's token carries a role directive.
type Resolver struct {
	stsFactory func(aws.Config) STSAPI
}

// NewResolver creates a resolver backed by real STS clients.
func NewResolver() *Resolver {
	return &Resolver{
		stsFactory: func(cfg aws.Config) STSAPI { return sts.NewFromConfig(cfg) },
	}
}

// Resolve builds an AWS config from the profile's static credentials.
// A role directive in the session token triggers a second step: the
// static credentials assume the role and the returned temporary
// credentials replace them.
func (r *Resolver) Resolve(ctx context.Context, profile *types.Profile) (aws.Config, error) {
	if profile == nil {
		return aws.Config{}, apperrors.New(apperrors.CodeConfiguration, "no profile supplied")
	}
	if profile.AccessKeyID == "" || profile.SecretAccessKey == "" {
		return aws.Config{}, apperrors.Newf(apperrors.CodeConfiguration, "profile %q is missing static credentials", profile.DisplayName())
	}
	if profile.Region == "" {
		return aws.Config{}, apperrors.Newf(apperrors.CodeConfiguration, "profile %q has no region", profile.DisplayName())
	}

	directive := profile.TokenDirective()

	// Role directives are routing instructions, not session tokens.
	// Only a raw token travels with the static credentials.
	token := ""
	if directive.Kind == types.TokenRaw {
		token = directive.RawToken
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(profile.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			profile.AccessKeyID, profile.SecretAccessKey, token,
		)),
	)
	if err != nil {
		return aws.Config{}, apperrors.Wrap(err, apperrors.CodeConfiguration, "load aws config")
	}

	if directive.Kind != types.TokenRole {
		return cfg, nil
	}
	return r.assumeRole(ctx, cfg, profile.Region, directive)
}

func (r *Resolver) assumeRole(ctx context.Context, base aws.Config, region string, directive types.TokenDirective) (aws.Config, error) {
	client := r.stsFactory(base)

	output, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(directive.RoleArn),
		RoleSessionName: aws.String(directive.RoleSessionName),
	})
	if err != nil {
		return aws.Config{}, apperrors.Wrapf(err, apperrors.CodeAuthentication, "assume role %s", directive.RoleArn)
	}
	if output.Credentials == nil {
		return aws.Config{}, apperrors.Newf(apperrors.CodeAuthentication, "assume role %s returned no credentials", directive.RoleArn)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			aws.ToString(output.Credentials.AccessKeyId),
			aws.ToString(output.Credentials.SecretAccessKey),
			aws.ToString(output.Credentials.SessionToken),
		)),
	)
	if err != nil {
		return aws.Config{}, apperrors.Wrap(err, apperrors.CodeConfiguration, "load aws config")
	}
	return cfg, nil
}

// AccountID reports the account number the profile's credentials
// belong to.
func (r *Resolver) AccountID(ctx context.Context, profile *types.Profile) (string, error) {
	cfg, err := r.Resolve(ctx, profile)
	if err != nil {
		return "", err
	}
	return getAccountID(ctx, r.stsFactory(cfg))
}

func getAccountID(ctx context.Context, client STSAPI) (string, error) {
	output, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", classify(err, "sts", "GetCallerIdentity")
	}
	return aws.ToString(output.Account), nil
}
