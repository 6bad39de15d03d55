package usecase

import (
	"context"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	confirmationCodeLength   = 8
	confirmationCodeAttempts = 5
)

// OrderMaterializer turns a frozen draft into a persisted order. The
// reconciler guarantees it runs at most once per payment.
type OrderMaterializer interface {
	CreateOrder(ctx context.Context, orderID, paymentID uuid.UUID, draft entity.OrderDraft, paid bool) (*entity.Order, error)
}

// CartClearer closes the purchaser's open cart. No open cart is not an error.
type CartClearer interface {
	ClearOpenCartByOwner(ctx context.Context, userID uuid.UUID) error
	ClearOpenCartBySession(ctx context.Context, sessionID string) error
}

type orderMaterializer struct {
	orders repository.OrderRepository
	log    *zap.Logger
}

func NewOrderMaterializer(orders repository.OrderRepository, log *zap.Logger) OrderMaterializer {
	return &orderMaterializer{
		orders: orders,
		log:    log.With(zap.String("service", "order")),
	}
}

func (m *orderMaterializer) CreateOrder(ctx context.Context, orderID, paymentID uuid.UUID, draft entity.OrderDraft, paid bool) (*entity.Order, error) {
	code, err := m.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &entity.Order{
		Base:             entity.Base{ID: orderID, CreatedAt: now, UpdatedAt: now},
		PaymentID:        paymentID,
		UserID:           draft.UserID,
		SessionID:        draft.SessionID,
		CustomerName:     draft.CustomerName,
		CustomerEmail:    draft.CustomerEmail,
		CustomerPhone:    draft.CustomerPhone,
		Items:            draft.Items,
		AppliedOfferID:   draft.AppliedOfferID,
		Notes:            draft.Notes,
		TotalCents:       draft.TotalCents,
		Currency:         draft.Currency,
		Status:           entity.OrderStatusPending,
		PaymentStatus:    entity.OrderPaymentPending,
		ConfirmationCode: code,
	}
	if paid {
		order.Status = entity.OrderStatusConfirmed
		order.PaymentStatus = entity.OrderPaymentPaid
	}

	if err := m.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("materialize order: %w", err)
	}

	m.log.Info("Order materialized",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("confirmation_code", code),
	)

	return order, nil
}

func (m *orderMaterializer) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < confirmationCodeAttempts; i++ {
		code, err := utils.GenerateConfirmationCode(confirmationCodeLength)
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}

		taken, err := m.orders.ExistsByConfirmationCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free confirmation code after %d attempts", confirmationCodeAttempts)
}

type cartClearer struct {
	carts repository.CartRepository
	log   *zap.Logger
}

func NewCartClearer(carts repository.CartRepository, log *zap.Logger) CartClearer {
	return &cartClearer{
		carts: carts,
		log:   log.With(zap.String("service", "cart")),
	}
}

func (c *cartClearer) ClearOpenCartByOwner(ctx context.Context, userID uuid.UUID) error {
	n, err := c.carts.CloseOpenByUser(ctx, userID)
	if err != nil {
		return err
	}
	c.log.Debug("Cart cleared", zap.String("user_id", userID.String()), zap.Int64("carts", n))
	return nil
}

func (c *cartClearer) ClearOpenCartBySession(ctx context.Context, sessionID string) error {
	n, err := c.carts.CloseOpenBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	c.log.Debug("Session cart cleared", zap.Int64("carts", n))
	return nil
}
