package notification

import (
	"context"
	"log/slog"
)

const (
	// KindSendVerification asks the bot to deliver a verification code.
	KindSendVerification = "send_verification"
)

// Message describes a payload handed to the bot backend.
type Message struct {
	Kind        string
	Destination string
	Body        []byte
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "bytes", len(message.Body))
	return nil
}
