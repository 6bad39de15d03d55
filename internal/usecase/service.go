package usecase

import (
	"tour-booking/internal/data/repository"
	"tour-booking/internal/gateway"
	"tour-booking/internal/mail"
	"tour-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Charge     ChargeService
	IPN        IPNService
	Payment    PaymentService
	Dispatcher ConfirmationDispatcher
}

// Dependencies are the outbound ports the services talk to
type Dependencies struct {
	Gateway  gateway.Gateway
	Verifier *gateway.Verifier
	Notifier mail.Notifier
}

func NewService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) *Service {
	dispatcher := NewConfirmationDispatcher(repo.Outbox, deps.Notifier, DispatcherConfig{
		MaxAttempts: config.Mail.MaxAttempts,
		RetryBase:   config.Mail.RetryBase,
		Lease:       config.Worker.Lease,
		Batch:       config.Worker.OutboxBatch,
	}, log)

	return &Service{
		Charge: NewChargeService(repo, deps.Gateway, config.Gateway, log),
		IPN: NewIPNService(
			repo,
			deps.Verifier,
			NewOrderMaterializer(repo.Order, log),
			NewCartClearer(repo.Cart, log),
			dispatcher,
			log,
		),
		Payment:    NewPaymentService(repo, log),
		Dispatcher: dispatcher,
	}
}
