package entity

import (
	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusCompleted OrderStatus = "completed"
)

type OrderPaymentStatus string

const (
	OrderPaymentPending OrderPaymentStatus = "pending"
	OrderPaymentPaid    OrderPaymentStatus = "paid"
)

type Order struct {
	Base
	PaymentID        uuid.UUID          `db:"payment_id"`
	UserID           *uuid.UUID         `db:"user_id"`
	SessionID        string             `db:"session_id"`
	CustomerName     string             `db:"customer_name"`
	CustomerEmail    string             `db:"customer_email"`
	CustomerPhone    string             `db:"customer_phone"`
	Items            []DraftItem        `db:"items"`
	AppliedOfferID   *string            `db:"applied_offer_id"`
	Notes            string             `db:"notes"`
	TotalCents       int64              `db:"total_cents"`
	Currency         string             `db:"currency"`
	Status           OrderStatus        `db:"status"`
	PaymentStatus    OrderPaymentStatus `db:"payment_status"`
	ConfirmationCode string             `db:"confirmation_code"`
}
