package aws

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudscope/cloudscope/types"
)

// tagDefault is the display placeholder for resources missing Name or
// Env tags. Consumers key on the literal string, keep it stable.
const tagDefault = "empty"

func extractTags(tags []ec2types.Tag) (name, environment string) {
	name, environment = tagDefault, tagDefault
	for _, tag := range tags {
		switch aws.ToString(tag.Key) {
		case "Name":
			name = aws.ToString(tag.Value)
		case "Env":
			environment = aws.ToString(tag.Value)
		}
	}
	return name, environment
}

// extractQueueName pulls the queue name from its URL.
func extractQueueName(queueURL string) string {
	for i := len(queueURL) - 1; i >= 0; i-- {
		if queueURL[i] == '/' {
			return queueURL[i+1:]
		}
	}
	return queueURL
}

// extractTopicName pulls the topic name from its ARN.
func extractTopicName(topicArn string) string {
	parts := strings.Split(topicArn, ":")
	return parts[len(parts)-1]
}

// instanceProfileName strips the ARN prefix up to the first slash.
func instanceProfileName(arn string) string {
	if i := strings.Index(arn, "/"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

func gigabytes(size int32) string {
	return strconv.FormatInt(int64(size), 10) + " GB"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimeOr(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.UTC().Format(time.RFC3339)
}

// sortByKey orders records ascending by the named string field so
// repeated fetches of unchanged data display identically.
func sortByKey(records []types.ResourceRecord, key string) []types.ResourceRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].String(key) < records[j].String(key)
	})
	return records
}
