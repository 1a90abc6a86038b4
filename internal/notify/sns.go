package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/imrishuroy/go-order-ingestion/internal/aws"
)

// SNSPublisher publishes to an SNS topic.
type SNSPublisher struct {
	client   aws.SNSAPI
	topicARN string
}

// NewSNSPublisher returns a publisher bound to topicARN.
func NewSNSPublisher(client aws.SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// Publish sends body as the message text.
func (p *SNSPublisher) Publish(ctx context.Context, key string, body []byte) error {
	message := string(body)
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &message,
	})
	if err != nil {
		return &PublishError{Topic: p.topicARN, Key: key, Err: fmt.Errorf("sns publish: %w", err)}
	}
	return nil
}
