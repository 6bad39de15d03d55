package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"
	"tour-booking/internal/gateway"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCurrency = "PEN"

type ChargeService interface {
	// OpenCharge freezes the checkout into a PENDING payment and asks the
	// gateway for a form token. On gateway failure both a response (with the
	// payment id) and an error are returned.
	OpenCharge(ctx context.Context, req *request.CreateChargeRequest, userID *uuid.UUID) (*response.ChargeResponse, error)
}

type chargeService struct {
	repo      *repository.Repository
	gateway   gateway.Gateway
	publicKey string
	timeout   time.Duration
	log       *zap.Logger
}

func NewChargeService(repo *repository.Repository, gw gateway.Gateway, config utils.GatewayConfig, log *zap.Logger) ChargeService {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &chargeService{
		repo:      repo,
		gateway:   gw,
		publicKey: config.PublicKey,
		timeout:   timeout,
		log:       log.With(zap.String("service", "charge")),
	}
}

func (s *chargeService) OpenCharge(ctx context.Context, req *request.CreateChargeRequest, userID *uuid.UUID) (*response.ChargeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Charge request validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	draft, err := buildDraft(req, userID)
	if err != nil {
		return nil, err
	}

	if err := draft.Validate(); err != nil {
		s.log.Warn("Order draft rejected", zap.Error(err), zap.String("owner_key", draft.OwnerKey()))
		return nil, err
	}

	pending, err := entity.NewPendingPayment(draft, time.Now())
	if err != nil {
		return nil, fmt.Errorf("build payment: %w", err)
	}

	payment, reused, err := s.repo.Payment.CreateOrReuse(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("open payment: %w", err)
	}

	resp := &response.ChargeResponse{
		PublicKey: s.publicKey,
		PaymentID: payment.ID.String(),
		Reused:    reused,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.gateway.CreatePayment(callCtx, gateway.ChargeRequest{
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		OrderID:     payment.ID.String(),
		Email:       payment.OrderDraft.CustomerEmail,
		Reference:   customerReference(payment.OrderDraft),
	})
	if err != nil {
		s.log.Warn("Gateway did not issue a form token",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		if errors.Is(err, gateway.ErrRejected) {
			return resp, fmt.Errorf("%w: %v", ErrGatewayRejected, err)
		}
		return resp, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	// The token is usable even if storing it fails
	if err := s.repo.Payment.SetFormToken(ctx, payment.ID, token.FormToken); err != nil {
		s.log.Warn("Failed to store form token", zap.Error(err), zap.String("payment_id", payment.ID.String()))
	}

	s.log.Info("Charge opened",
		zap.String("payment_id", payment.ID.String()),
		zap.Int64("amount_cents", payment.AmountCents),
		zap.String("currency", payment.Currency),
		zap.Bool("reused", reused),
	)

	resp.FormToken = token.FormToken
	return resp, nil
}

func buildDraft(req *request.CreateChargeRequest, userID *uuid.UUID) (entity.OrderDraft, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	items := make([]entity.DraftItem, len(req.Items))
	for i, it := range req.Items {
		travelDate, err := time.Parse("2006-01-02", it.TravelDate)
		if err != nil {
			return entity.OrderDraft{}, fmt.Errorf("%w: item %d travel date %q", ErrValidation, i, it.TravelDate)
		}
		items[i] = entity.DraftItem{
			TourID:          it.TourID,
			TourName:        it.TourName,
			TravelDate:      travelDate,
			Adults:          it.Adults,
			Children:        it.Children,
			Infants:         it.Infants,
			UnitPriceCents:  toCents(it.UnitPrice),
			TotalPriceCents: toCents(it.TotalPrice),
			AppliedOfferID:  it.AppliedOfferID,
			Notes:           it.Notes,
		}
	}

	return entity.OrderDraft{
		UserID:         userID,
		SessionID:      strings.TrimSpace(req.SessionID),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerEmail:  strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		Items:          items,
		SubtotalCents:  toCents(req.Subtotal),
		DiscountCents:  toCents(req.Discount),
		TotalCents:     toCents(req.Total),
		Currency:       currency,
		AppliedOfferID: req.AppliedOfferID,
		Notes:          req.Notes,
	}, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func customerReference(d entity.OrderDraft) string {
	if d.UserID != nil {
		return d.UserID.String()
	}
	return ""
}
