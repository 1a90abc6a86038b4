// Package notify announces stored orders on the success topic.
package notify

import (
	"context"
	"fmt"
)

// Notifier publishes one message to the configured topic. key identifies the
// order the message is about.
type Notifier interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// PublishError reports a message the topic did not accept.
type PublishError struct {
	Topic string
	Key   string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish order %s to %s: %v", e.Key, e.Topic, e.Err)
}
func (e *PublishError) Unwrap() error { return e.Err }
