package entity

import (
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSending OutboxStatus = "sending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxMessage is a payment confirmation waiting to be delivered. There is at
// most one per payment.
type OutboxMessage struct {
	Base
	PaymentID     uuid.UUID    `db:"payment_id"`
	Payload       Confirmation `db:"payload"`
	Status        OutboxStatus `db:"status"`
	Attempts      int          `db:"attempts"`
	NextAttemptAt time.Time    `db:"next_attempt_at"`
	LockedUntil   *time.Time   `db:"locked_until"`
	LastError     *string      `db:"last_error"`
	SentAt        *time.Time   `db:"sent_at"`
}

// Confirmation is the content of the "payment confirmed" message
type Confirmation struct {
	To               string             `json:"to"`
	CustomerName     string             `json:"customer_name"`
	OrderID          string             `json:"order_id"`
	ConfirmationCode string             `json:"confirmation_code"`
	TotalCents       int64              `json:"total_cents"`
	Currency         string             `json:"currency"`
	Guest            bool               `json:"guest"`
	Items            []ConfirmationItem `json:"items"`
}

type ConfirmationItem struct {
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	Date            string `json:"date"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

// NewConfirmation summarises a materialized order for the purchaser
func NewConfirmation(order *Order) Confirmation {
	items := make([]ConfirmationItem, len(order.Items))
	for i, it := range order.Items {
		name := it.TourName
		if name == "" {
			name = it.TourID
		}
		items[i] = ConfirmationItem{
			Name:            name,
			Quantity:        it.Travellers(),
			Date:            it.TravelDate.Format("2006-01-02"),
			UnitPriceCents:  it.UnitPriceCents,
			TotalPriceCents: it.TotalPriceCents,
		}
	}

	return Confirmation{
		To:               order.CustomerEmail,
		CustomerName:     order.CustomerName,
		OrderID:          order.ID.String(),
		ConfirmationCode: order.ConfirmationCode,
		TotalCents:       order.TotalCents,
		Currency:         order.Currency,
		Guest:            order.UserID == nil,
		Items:            items,
	}
}
