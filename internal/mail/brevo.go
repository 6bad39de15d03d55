package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tour-booking/internal/data/entity"

	"go.uber.org/zap"
)

const sendEmailPath = "/v3/smtp/email"

// BrevoNotifier sends transactional mail through the Brevo HTTP API
type BrevoNotifier struct {
	baseURL    string
	apiKey     string
	from       string
	fromName   string
	profileURL string
	http       *http.Client
	log        *zap.Logger
}

type BrevoConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	FromName   string
	ProfileURL string
	Timeout    time.Duration
}

func NewBrevoNotifier(cfg BrevoConfig, log *zap.Logger) *BrevoNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BrevoNotifier{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		fromName:   cfg.FromName,
		profileURL: cfg.ProfileURL,
		http:       &http.Client{Timeout: timeout},
		log:        log.With(zap.String("notifier", "brevo")),
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (n *BrevoNotifier) SendPaymentConfirmation(ctx context.Context, c entity.Confirmation) error {
	subject, html, err := renderConfirmation(c, n.fromName, n.profileURL)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(brevoEmail{
		Sender:      brevoContact{Email: n.from, Name: n.fromName},
		To:          []brevoContact{{Email: c.To, Name: c.CustomerName}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+sendEmailPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("api-key", n.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send email: brevo http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	n.log.Info("Payment confirmation sent",
		zap.String("order_id", c.OrderID),
		zap.Bool("guest", c.Guest),
	)
	return nil
}
