package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"photoflow/internal/domain"
	"photoflow/internal/infra"
)

// SNSPublisher publishes job and batch notifications to an SNS topic.
// Subscribers filter on the message attributes.
type SNSPublisher struct {
	client   *sns.Client
	topicARN string
	logger   infra.Logger
}

// NewSNSPublisher builds a publisher for topicARN.
func NewSNSPublisher(cfg aws.Config, topicARN string, logger infra.Logger) *SNSPublisher {
	return &SNSPublisher{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
		logger:   logger,
	}
}

// PublishJob dispatches a terminal-status notification for job.
func (p *SNSPublisher) PublishJob(ctx context.Context, job *domain.Job) error {
	body := JobMessage{
		JobID:      job.ID,
		UserID:     job.UserID,
		Status:     string(job.Status),
		FinalS3Key: job.FinalS3Key,
		Error:      job.ErrorMessage,
		BatchJobID: job.BatchJobID,
	}
	attributes := map[string]types.MessageAttributeValue{
		"jobId":  stringAttribute(job.ID),
		"status": stringAttribute(string(job.Status)),
	}
	if job.BatchJobID != "" {
		attributes["batchJobId"] = stringAttribute(job.BatchJobID)
	}
	return p.publish(ctx, body, attributes)
}

// PublishBatch dispatches a completion notification for batch.
func (p *SNSPublisher) PublishBatch(ctx context.Context, batch *domain.BatchJob) error {
	body := BatchMessage{
		BatchJobID:     batch.ID,
		UserID:         batch.UserID,
		Status:         string(batch.Status),
		CompletedCount: batch.CompletedCount,
		TotalCount:     batch.TotalCount,
	}
	attributes := map[string]types.MessageAttributeValue{
		"batchJobId": stringAttribute(batch.ID),
		"status":     stringAttribute(string(batch.Status)),
	}
	return p.publish(ctx, body, attributes)
}

func (p *SNSPublisher) publish(ctx context.Context, body any, attributes map[string]types.MessageAttributeValue) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: encode message: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(p.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attributes,
	})
	if err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	p.logger.Debug().Str("topic_arn", p.topicARN).Msg("notify: message published")
	return nil
}

func stringAttribute(value string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(value),
	}
}

var _ Publisher = (*SNSPublisher)(nil)
