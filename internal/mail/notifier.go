package mail

import (
	"context"

	"tour-booking/internal/data/entity"

	"go.uber.org/zap"
)

// Notifier delivers the payment confirmation to the purchaser
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, c entity.Confirmation) error
}

// LogNotifier only logs; used when no mail provider is configured
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("notifier", "log"))}
}

func (n *LogNotifier) SendPaymentConfirmation(ctx context.Context, c entity.Confirmation) error {
	n.log.Info("Payment confirmation (not sent, no mail provider)",
		zap.String("to", c.To),
		zap.String("order_id", c.OrderID),
		zap.String("confirmation_code", c.ConfirmationCode),
		zap.Bool("guest", c.Guest),
	)
	return nil
}
