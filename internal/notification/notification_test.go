package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/giftgate/giftgate/internal/logging"
)

type recordingPublisher struct {
	topic string
	body  []byte
	err   error
}

func (p *recordingPublisher) Publish(topic string, body []byte) error {
	p.topic = topic
	p.body = body
	return p.err
}

func TestNSQNotifierPublishesBody(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNSQNotifier(pub, "bot.verification")

	msg := Message{Kind: KindSendVerification, Destination: "79991234567", Body: []byte(`{"code":"123456"}`)}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if pub.topic != "bot.verification" {
		t.Fatalf("unexpected topic %s", pub.topic)
	}
	if string(pub.body) != `{"code":"123456"}` {
		t.Fatalf("unexpected body %s", pub.body)
	}
}

func TestNSQNotifierWrapsPublishError(t *testing.T) {
	boom := errors.New("nsqd down")
	n := NewNSQNotifier(&recordingPublisher{err: boom}, "t")

	err := n.Send(context.Background(), Message{Kind: KindSendVerification})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("nil notifier should be a no-op, got %v", err)
	}
	if err := NewLoggerNotifier(logging.Discard()).Send(context.Background(), Message{Kind: KindSendVerification}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
