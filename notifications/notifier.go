package notifications

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers customer- and vendor-facing messages. Delivery mechanics
// (SMTP, SMS gateway) live outside this service.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}

// LogNotifier records deliveries instead of sending them. It is the default
// implementation until a real gateway is plugged in.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	n.logger.Info("email notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

func (n *LogNotifier) SendSMS(ctx context.Context, to, message string) error {
	n.logger.Info("sms notification",
		zap.String("to", to),
		zap.String("message", message))
	return nil
}
