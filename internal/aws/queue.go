package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// Sender wraps an SQS client and a queue URL.
type Sender struct {
	SQS      SQSAPI
	QueueURL string
}

// NewSender returns a Sender bound to a queue URL.
func NewSender(sqsClient SQSAPI, queueURL string) *Sender {
	return &Sender{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// SendOrderMessage sends an order message to SQS. messageBody should be a JSON string.
// attributes map[string]string -> sent as MessageAttributes.
// Returns the SQS message id.
func (s *Sender) SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    &s.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			if v == "" {
				// SQS rejects empty attribute values
				continue
			}
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	out, err := s.SQS.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}

// BatchFunc handles one received batch. A nil return acknowledges the batch.
type BatchFunc func(ctx context.Context, ev events.SQSEvent) error

// Poller long-polls a queue and feeds each batch to a BatchFunc, the way the
// Lambda event source mapping would. Used when the handler runs outside Lambda.
type Poller struct {
	SQS         SQSAPI
	QueueURL    string
	MaxMessages int32
	WaitTime    time.Duration
	Logger      *zap.Logger
}

// NewPoller returns a Poller with the given receive settings.
func NewPoller(sqsClient SQSAPI, queueURL string, maxMessages int, waitTime time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		SQS:         sqsClient,
		QueueURL:    queueURL,
		MaxMessages: int32(maxMessages),
		WaitTime:    waitTime,
		Logger:      logger,
	}
}

// Run polls until ctx is cancelled. Receive errors end the loop.
func (p *Poller) Run(ctx context.Context, fn BatchFunc) error {
	p.Logger.Info("queue poller started", zap.String("queue_url", p.QueueURL))
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := p.PollOnce(ctx, fn); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// PollOnce receives a single batch, hands it to fn and deletes it on success.
// It returns the number of messages received.
func (p *Poller) PollOnce(ctx context.Context, fn BatchFunc) (int, error) {
	out, err := p.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              &p.QueueURL,
		MaxNumberOfMessages:   p.MaxMessages,
		WaitTimeSeconds:       int32(p.WaitTime / time.Second),
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return 0, fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return 0, nil
	}

	ev := events.SQSEvent{Records: make([]events.SQSMessage, 0, len(out.Messages))}
	for _, m := range out.Messages {
		ev.Records = append(ev.Records, toEventMessage(m))
	}

	if err := fn(ctx, ev); err != nil {
		// leave the batch on the queue; it becomes visible again after the timeout
		p.Logger.Warn("batch not acknowledged", zap.Int("messages", len(ev.Records)), zap.Error(err))
		return len(ev.Records), nil
	}

	if err := p.deleteBatch(ctx, out.Messages); err != nil {
		return len(ev.Records), err
	}
	return len(ev.Records), nil
}

func (p *Poller) deleteBatch(ctx context.Context, msgs []sqstypes.Message) error {
	entries := make([]sqstypes.DeleteMessageBatchRequestEntry, 0, len(msgs))
	for i, m := range msgs {
		entries = append(entries, sqstypes.DeleteMessageBatchRequestEntry{
			Id:            sdkaws.String(strconv.Itoa(i)),
			ReceiptHandle: m.ReceiptHandle,
		})
	}
	out, err := p.SQS.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: &p.QueueURL,
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("delete message batch: %w", err)
	}
	for _, f := range out.Failed {
		p.Logger.Warn("message delete failed",
			zap.String("entry_id", sdkaws.ToString(f.Id)),
			zap.String("code", sdkaws.ToString(f.Code)),
			zap.String("detail", sdkaws.ToString(f.Message)),
		)
	}
	return nil
}

func toEventMessage(m sqstypes.Message) events.SQSMessage {
	em := events.SQSMessage{
		MessageId:     sdkaws.ToString(m.MessageId),
		ReceiptHandle: sdkaws.ToString(m.ReceiptHandle),
		Body:          sdkaws.ToString(m.Body),
		Md5OfBody:     sdkaws.ToString(m.MD5OfBody),
		Attributes:    m.Attributes,
		EventSource:   "aws:sqs",
	}
	if len(m.MessageAttributes) > 0 {
		em.MessageAttributes = make(map[string]events.SQSMessageAttribute, len(m.MessageAttributes))
		for k, v := range m.MessageAttributes {
			em.MessageAttributes[k] = events.SQSMessageAttribute{
				StringValue: v.StringValue,
				BinaryValue: v.BinaryValue,
				DataType:    sdkaws.ToString(v.DataType),
			}
		}
	}
	return em
}
