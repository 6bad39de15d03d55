package gateway

import (
	"encoding/json"
	"fmt"
)

const (
	OrderStatusPaid          = "PAID"
	OrderStatusUnpaid        = "UNPAID"
	OrderStatusRunning       = "RUNNING"
	OrderStatusPartiallyPaid = "PARTIALLY_PAID"
)

// Answer is the verified kr-answer document
type Answer struct {
	ShopID       string        `json:"shopId"`
	OrderCycle   string        `json:"orderCycle"`
	OrderStatus  string        `json:"orderStatus"`
	ServerDate   string        `json:"serverDate"`
	OrderDetails *OrderDetails `json:"orderDetails,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

type OrderDetails struct {
	OrderTotalAmount int64  `json:"orderTotalAmount"`
	OrderCurrency    string `json:"orderCurrency"`
	OrderID          string `json:"orderId"`
}

type Transaction struct {
	UUID           string `json:"uuid"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	DetailedStatus string `json:"detailedStatus"`
}

func parseAnswer(raw string) (*Answer, error) {
	var answer Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}
	if answer.OrderStatus == "" {
		return nil, fmt.Errorf("%w: orderStatus missing", ErrMalformedAnswer)
	}
	return &answer, nil
}

func (a *Answer) IsPaid() bool {
	return a.OrderStatus == OrderStatusPaid
}

// CorrelationID is the orderId this service sent when opening the charge
func (a *Answer) CorrelationID() string {
	if a.OrderDetails == nil {
		return ""
	}
	return a.OrderDetails.OrderID
}

// ChargeID is the gateway's reference of the transaction that moved money
func (a *Answer) ChargeID() string {
	for _, tx := range a.Transactions {
		if tx.UUID != "" {
			return tx.UUID
		}
	}
	return ""
}
