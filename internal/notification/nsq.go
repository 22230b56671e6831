package notification

import (
	"context"
	"fmt"
)

// Publisher is the subset of *nsq.Producer used for delivery.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// NSQNotifier publishes bot payloads to an nsqd topic consumed by the bot.
type NSQNotifier struct {
	publisher Publisher
	topic     string
}

// NewNSQNotifier wraps an nsq producer.
func NewNSQNotifier(publisher Publisher, topic string) *NSQNotifier {
	return &NSQNotifier{publisher: publisher, topic: topic}
}

// Send publishes the message body as-is.
func (n *NSQNotifier) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.publisher.Publish(n.topic, message.Body); err != nil {
		return fmt.Errorf("publish %s: %w", message.Kind, err)
	}
	return nil
}
