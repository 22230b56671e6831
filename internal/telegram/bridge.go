package telegram

import (
	"context"

	"github.com/giftgate/giftgate/internal/notification"
)

// Bridge is the server-side host. It cannot request contacts; it only relays
// payloads to the bot through a notifier.
type Bridge struct {
	notifier notification.Notifier
}

// NewBridge wraps a notifier.
func NewBridge(notifier notification.Notifier) *Bridge {
	return &Bridge{notifier: notifier}
}

// SendData forwards payload to the bot backend.
func (b *Bridge) SendData(ctx context.Context, payload []byte) error {
	return b.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindSendVerification,
		Destination: "bot",
		Body:        payload,
	})
}
