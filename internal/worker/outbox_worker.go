package worker

import (
	"context"
	"time"

	"tour-booking/internal/usecase"

	"go.uber.org/zap"
)

// OutboxWorker periodically delivers confirmations whose retry time has come
// or whose sender lease expired.
type OutboxWorker struct {
	dispatcher usecase.ConfirmationDispatcher
	interval   time.Duration
	log        *zap.Logger
}

func NewOutboxWorker(dispatcher usecase.ConfirmationDispatcher, interval time.Duration, log *zap.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &OutboxWorker{
		dispatcher: dispatcher,
		interval:   interval,
		log:        log.With(zap.String("worker", "outbox")),
	}
}

// Run blocks until ctx is cancelled
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Outbox worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Outbox worker stopped")
			return nil
		case <-ticker.C:
			w.process(ctx)
		}
	}
}

func (w *OutboxWorker) process(ctx context.Context) {
	sent, err := w.dispatcher.DispatchDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("Outbox pass failed", zap.Error(err))
		}
		return
	}

	if sent > 0 {
		w.log.Info("Outbox pass delivered confirmations", zap.Int("sent", sent))
	}
}
