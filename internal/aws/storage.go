package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeS3Buckets(ctx context.Context) ([]types.ResourceRecord, error) {
	output, err := p.clients.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, p.apiError(ctx, err, "s3", "ListBuckets")
	}

	var records []types.ResourceRecord
	for _, bucket := range output.Buckets {
		records = append(records, types.ResourceRecord{
			"Name":    aws.ToString(bucket.Name),
			"Created": formatTime(bucket.CreationDate),
			"Region":  p.bucketRegion(ctx, aws.ToString(bucket.Name)),
		})
	}

	return sortByKey(records, "Name"), nil
}

// bucketRegion resolves a bucket's region. Lookup failures degrade to
// "unknown" rather than failing the whole bucket listing.
func (p *Provider) bucketRegion(ctx context.Context, name string) string {
	output, err := p.clients.S3.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(name)})
	if err != nil {
		p.log.WithContext(ctx).Debug().Err(err).Str("bucket", name).Msg("bucket location lookup failed")
		return "unknown"
	}

	// us-east-1 is reported as an empty constraint.
	if output.LocationConstraint == "" {
		return "us-east-1"
	}
	return string(output.LocationConstraint)
}
