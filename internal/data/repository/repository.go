package repository

import (
	"tour-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Payment  PaymentRepository
	Order    OrderRepository
	Cart     CartRepository
	IPNEvent IPNEventRepository
	Outbox   OutboxRepository
	Tx       database.Transactor
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Payment:  NewPaymentRepository(db, log),
		Order:    NewOrderRepository(db, log),
		Cart:     NewCartRepository(db, log),
		IPNEvent: NewIPNEventRepository(db, log),
		Outbox:   NewOutboxRepository(db, log),
		Tx:       database.NewTransactor(db),
	}
}
