package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is one charge attempt. ID is the correlation key the gateway echoes
// back as orderDetails.orderId. Amount, currency and draft are frozen at
// creation; LinkedOrderID is set together with the PAID status and never
// cleared.
type Payment struct {
	Base
	AmountCents      int64         `db:"amount_cents"`
	Currency         string        `db:"currency"`
	Status           PaymentStatus `db:"status"`
	OrderDraft       OrderDraft    `db:"order_draft"`
	OwnerKey         string        `db:"owner_key"`
	DraftFingerprint string        `db:"draft_fingerprint"`
	GatewayChargeID  *string       `db:"gateway_charge_id"`
	FormToken        *string       `db:"form_token"`
	ResultPayload    []byte        `db:"result_payload"`
	LinkedOrderID    *uuid.UUID    `db:"linked_order_id"`
	PaidAt           *time.Time    `db:"paid_at"`
}

// NewPendingPayment freezes draft into a fresh PENDING payment
func NewPendingPayment(draft OrderDraft, now time.Time) (*Payment, error) {
	fingerprint, err := draft.Fingerprint()
	if err != nil {
		return nil, err
	}

	return &Payment{
		Base:             NewBase(now),
		AmountCents:      draft.TotalCents,
		Currency:         draft.Currency,
		Status:           PaymentStatusPending,
		OrderDraft:       draft,
		OwnerKey:         draft.OwnerKey(),
		DraftFingerprint: fingerprint,
	}, nil
}

func (p *Payment) IsPending() bool { return p.Status == PaymentStatusPending }
func (p *Payment) IsPaid() bool    { return p.Status == PaymentStatusPaid }

// Settlement is what the reconciler writes when a payment flips to PAID
type Settlement struct {
	PaymentID       uuid.UUID
	OrderID         uuid.UUID
	GatewayChargeID string
	ResultPayload   []byte
	PaidAt          time.Time
}
