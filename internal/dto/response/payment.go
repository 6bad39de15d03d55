package response

import (
	"encoding/json"
	"time"

	"tour-booking/internal/data/entity"
)

type ChargeResponse struct {
	FormToken string `json:"form_token"`
	PublicKey string `json:"public_key"`
	PaymentID string `json:"payment_id"`
	Reused    bool   `json:"reused"`
}

// PaymentStatusResponse is the public view polled by the checkout page
type PaymentStatusResponse struct {
	PaymentID string               `json:"payment_id"`
	Status    entity.PaymentStatus `json:"status"`
	Amount    float64              `json:"amount"`
	Currency  string               `json:"currency"`
	OrderID   *string              `json:"order_id,omitempty"`
	PaidAt    *time.Time           `json:"paid_at,omitempty"`
}

type PaymentDetailResponse struct {
	PaymentStatusResponse
	OwnerKey        string            `json:"owner_key"`
	GatewayChargeID *string           `json:"gateway_charge_id,omitempty"`
	OrderDraft      entity.OrderDraft `json:"order_draft"`
	ResultPayload   json.RawMessage   `json:"result_payload,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func PaymentToStatusResponse(p *entity.Payment) PaymentStatusResponse {
	resp := PaymentStatusResponse{
		PaymentID: p.ID.String(),
		Status:    p.Status,
		Amount:    float64(p.AmountCents) / 100,
		Currency:  p.Currency,
		PaidAt:    p.PaidAt,
	}
	if p.LinkedOrderID != nil {
		orderID := p.LinkedOrderID.String()
		resp.OrderID = &orderID
	}
	return resp
}

func PaymentToDetailResponse(p *entity.Payment) PaymentDetailResponse {
	return PaymentDetailResponse{
		PaymentStatusResponse: PaymentToStatusResponse(p),
		OwnerKey:              p.OwnerKey,
		GatewayChargeID:       p.GatewayChargeID,
		OrderDraft:            p.OrderDraft,
		ResultPayload:         json.RawMessage(p.ResultPayload),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
