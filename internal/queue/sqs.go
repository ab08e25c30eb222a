package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"photoflow/internal/infra"
)

const (
	receiveBatchSize   = 5
	receiveWaitSeconds = 20
	receiveErrorPause  = 2 * time.Second
)

// SQSConsumer reads upload events from an SQS queue. Messages are deleted
// only after the handler returns nil, so failures surface again after the
// visibility timeout.
type SQSConsumer struct {
	client   *sqs.Client
	queueURL string
	logger   infra.Logger
}

// NewSQSConsumer builds a consumer for queueURL.
func NewSQSConsumer(cfg aws.Config, queueURL string, logger infra.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled.
func (c *SQSConsumer) Run(ctx context.Context, handle Handler) error {
	c.logger.Info().Str("queue_url", c.queueURL).Msg("queue: consumer started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: receiveBatchSize,
			WaitTimeSeconds:     receiveWaitSeconds,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Error().Err(err).Msg("queue: receive failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveErrorPause):
			}
			continue
		}
		for _, message := range out.Messages {
			c.process(ctx, message, handle)
		}
	}
}

func (c *SQSConsumer) process(ctx context.Context, message types.Message, handle Handler) {
	event, err := decodeEvent(message.Body)
	if err != nil {
		// A malformed message would be redelivered forever; drop it loudly.
		c.logger.Error().Err(err).Str("message_id", aws.ToString(message.MessageId)).Msg("queue: dropping malformed message")
		c.delete(ctx, message)
		return
	}

	if err := handle(ctx, event); err != nil {
		c.logger.Error().Err(err).
			Str("bucket", event.Bucket).
			Str("key", event.Key).
			Msg("queue: handler failed, message will be redelivered")
		return
	}
	c.delete(ctx, message)
}

func (c *SQSConsumer) delete(ctx context.Context, message types.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("queue: delete message failed")
	}
}

func decodeEvent(body *string) (UploadEvent, error) {
	var event UploadEvent
	if body == nil {
		return event, errors.New("empty message body")
	}
	if err := json.Unmarshal([]byte(*body), &event); err != nil {
		return event, err
	}
	if event.Bucket == "" || event.Key == "" {
		return event, errors.New("message missing bucket or key")
	}
	return event, nil
}

var _ Consumer = (*SQSConsumer)(nil)
