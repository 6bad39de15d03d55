package usecase

import (
	"context"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/mail"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRetryDelay = time.Hour

type DispatcherConfig struct {
	MaxAttempts int
	RetryBase   time.Duration
	Lease       time.Duration
	Batch       int
}

// ConfirmationDispatcher delivers queued payment confirmations. A failed send
// never touches the payment; the message is rescheduled instead.
type ConfirmationDispatcher interface {
	// DispatchPayment sends the confirmation of one payment if nobody else
	// holds it. It is a no-op when the message is already sent or leased.
	DispatchPayment(ctx context.Context, paymentID uuid.UUID) error
	// DispatchDue sends every message whose retry time has come and reports
	// how many were delivered.
	DispatchDue(ctx context.Context) (int, error)
}

type confirmationDispatcher struct {
	outbox   repository.OutboxRepository
	notifier mail.Notifier
	config   DispatcherConfig
	now      func() time.Time
	log      *zap.Logger
}

func NewConfirmationDispatcher(outbox repository.OutboxRepository, notifier mail.Notifier, config DispatcherConfig, log *zap.Logger) ConfirmationDispatcher {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 8
	}
	if config.RetryBase <= 0 {
		config.RetryBase = 30 * time.Second
	}
	if config.Lease <= 0 {
		config.Lease = 2 * time.Minute
	}
	if config.Batch < 1 {
		config.Batch = 20
	}

	return &confirmationDispatcher{
		outbox:   outbox,
		notifier: notifier,
		config:   config,
		now:      time.Now,
		log:      log.With(zap.String("service", "dispatcher")),
	}
}

func (d *confirmationDispatcher) DispatchPayment(ctx context.Context, paymentID uuid.UUID) error {
	msg, err := d.outbox.Claim(ctx, paymentID, d.now().Add(d.config.Lease))
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	return d.dispatch(ctx, msg)
}

func (d *confirmationDispatcher) DispatchDue(ctx context.Context) (int, error) {
	messages, err := d.outbox.ClaimDue(ctx, d.config.Batch, d.now().Add(d.config.Lease))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range messages {
		if err := d.dispatch(ctx, msg); err != nil {
			continue
		}
		sent++
	}

	return sent, nil
}

// dispatch expects msg to be claimed, with Attempts already counting this try
func (d *confirmationDispatcher) dispatch(ctx context.Context, msg *entity.OutboxMessage) error {
	sendErr := d.notifier.SendPaymentConfirmation(ctx, msg.Payload)
	if sendErr == nil {
		if err := d.outbox.MarkSent(ctx, msg.ID, d.now()); err != nil {
			return err
		}
		d.log.Info("Payment confirmation sent",
			zap.String("payment_id", msg.PaymentID.String()),
			zap.Int("attempt", msg.Attempts),
		)
		return nil
	}

	if msg.Attempts >= d.config.MaxAttempts {
		d.log.Error("Payment confirmation abandoned",
			zap.Error(sendErr),
			zap.String("payment_id", msg.PaymentID.String()),
			zap.Int("attempts", msg.Attempts),
		)
		if err := d.outbox.MarkFailed(ctx, msg.ID, sendErr.Error()); err != nil {
			return err
		}
		return fmt.Errorf("send confirmation for payment %s: %w", msg.PaymentID.String(), sendErr)
	}

	next := d.now().Add(retryDelay(d.config.RetryBase, msg.Attempts))
	d.log.Warn("Payment confirmation failed, will retry",
		zap.Error(sendErr),
		zap.String("payment_id", msg.PaymentID.String()),
		zap.Int("attempt", msg.Attempts),
		zap.Time("next_attempt_at", next),
	)
	if err := d.outbox.MarkRetry(ctx, msg.ID, next, sendErr.Error()); err != nil {
		return err
	}

	return fmt.Errorf("send confirmation for payment %s: %w", msg.PaymentID.String(), sendErr)
}

// retryDelay doubles base for every attempt after the first, up to an hour
func retryDelay(base time.Duration, attempts int) time.Duration {
	delay := base
	for i := 1; i < attempts && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}
