package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/cloudscope/cloudscope/types"
)

func (p *Provider) describeSQSQueues(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		// ListQueues only returns NextToken when MaxResults is set.
		output, err := p.clients.SQS.ListQueues(ctx, &sqs.ListQueuesInput{
			MaxResults: aws.Int32(1000),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, p.apiError(ctx, err, "sqs", "ListQueues")
		}

		for _, url := range output.QueueUrls {
			records = append(records, types.ResourceRecord{
				"Name":      extractQueueName(url),
				"Queue URL": url,
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}

func (p *Provider) describeSNSTopics(ctx context.Context) ([]types.ResourceRecord, error) {
	var records []types.ResourceRecord
	var nextToken *string

	for {
		output, err := p.clients.SNS.ListTopics(ctx, &sns.ListTopicsInput{NextToken: nextToken})
		if err != nil {
			return nil, p.apiError(ctx, err, "sns", "ListTopics")
		}

		for _, topic := range output.Topics {
			arn := aws.ToString(topic.TopicArn)
			records = append(records, types.ResourceRecord{
				"Name":      extractTopicName(arn),
				"Topic ARN": arn,
			})
		}

		if output.NextToken == nil {
			break
		}
		nextToken = output.NextToken
	}

	return sortByKey(records, "Name"), nil
}
