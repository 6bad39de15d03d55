package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrRejected means the gateway answered but refused to create the charge
	ErrRejected = errors.New("gateway rejected charge")
	// ErrUnavailable covers transport failures and timeouts
	ErrUnavailable = errors.New("gateway unavailable")
)

const createPaymentPath = "/api-payment/V4/Charge/CreatePayment"

// ChargeRequest asks the gateway for a one-time form token
type ChargeRequest struct {
	AmountCents int64
	Currency    string
	OrderID     string
	Email       string
	Reference   string
}

type ChargeToken struct {
	FormToken string
}

// Gateway is the outbound contract the charge initiator depends on
type Gateway interface {
	CreatePayment(ctx context.Context, req ChargeRequest) (*ChargeToken, error)
}

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(baseURL, username, password string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
		log:      log.With(zap.String("gateway", "izipay")),
	}
}

type createPaymentBody struct {
	Amount   int64            `json:"amount"`
	Currency string           `json:"currency"`
	OrderID  string           `json:"orderId"`
	Customer createPaymentCus `json:"customer"`
}

type createPaymentCus struct {
	Email     string `json:"email"`
	Reference string `json:"reference,omitempty"`
}

type createPaymentResponse struct {
	Status string `json:"status"`
	Answer struct {
		FormToken    string `json:"formToken"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"answer"`
}

func (c *Client) CreatePayment(ctx context.Context, req ChargeRequest) (*ChargeToken, error) {
	payload, err := json.Marshal(createPaymentBody{
		Amount:   req.AmountCents,
		Currency: req.Currency,
		OrderID:  req.OrderID,
		Customer: createPaymentCus{Email: req.Email, Reference: req.Reference},
	})
	if err != nil {
		return nil, fmt.Errorf("encode create payment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPaymentPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build create payment request: %w", err)
	}
	httpReq.SetBasicAuth(c.username, c.password)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn("Create payment call failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: merchant authentication failed (http %d)", ErrRejected, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}

	var out createPaymentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: undecodable response (http %d)", ErrRejected, resp.StatusCode)
	}

	if out.Status != "SUCCESS" || out.Answer.FormToken == "" {
		c.log.Warn("Create payment rejected",
			zap.String("order_id", req.OrderID),
			zap.String("status", out.Status),
			zap.String("error_code", out.Answer.ErrorCode),
			zap.String("error_message", out.Answer.ErrorMessage),
		)
		return nil, fmt.Errorf("%w: %s %s", ErrRejected, out.Answer.ErrorCode, out.Answer.ErrorMessage)
	}

	return &ChargeToken{FormToken: out.Answer.FormToken}, nil
}
