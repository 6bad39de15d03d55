package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tour-booking/internal/data/entity"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Order, error)
	ExistsByConfirmationCode(ctx context.Context, code string) (bool, error)
}

type orderRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOrderRepository(db database.PgxIface, log *zap.Logger) OrderRepository {
	return &orderRepository{
		db:  db,
		log: log.With(zap.String("repository", "order")),
	}
}

const orderColumns = `id, payment_id, user_id, COALESCE(session_id, ''), customer_name, customer_email,
		       COALESCE(customer_phone, ''), items, applied_offer_id, COALESCE(notes, ''), total_cents,
		       currency, status, payment_status, confirmation_code, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, payment_id, user_id, session_id, customer_name, customer_email,
		                    customer_phone, items, applied_offer_id, notes, total_cents, currency,
		                    status, payment_status, confirmation_code, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9, NULLIF($10, ''),
		        $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = database.Conn(ctx, r.db).Exec(ctx, query,
		order.ID,
		order.PaymentID,
		order.UserID,
		order.SessionID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		items,
		order.AppliedOfferID,
		order.Notes,
		order.TotalCents,
		order.Currency,
		order.Status,
		order.PaymentStatus,
		order.ConfirmationCode,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create order",
			zap.Error(err),
			zap.String("order_id", order.ID.String()),
			zap.String("payment_id", order.PaymentID.String()),
		)
		return fmt.Errorf("create order for payment %s: %w", order.PaymentID.String(), err)
	}

	r.log.Debug("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("confirmation_code", order.ConfirmationCode),
	)

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *orderRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_id = $1`, paymentID)
}

func (r *orderRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Order, error) {
	var (
		order entity.Order
		items []byte
	)

	err := database.Conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.PaymentID,
		&order.UserID,
		&order.SessionID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&items,
		&order.AppliedOfferID,
		&order.Notes,
		&order.TotalCents,
		&order.Currency,
		&order.Status,
		&order.PaymentStatus,
		&order.ConfirmationCode,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find order", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("find order %s: %w", id.String(), err)
	}

	if err := json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", order.ID.String(), err)
	}

	return &order, nil
}

func (r *orderRepository) ExistsByConfirmationCode(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM orders WHERE confirmation_code = $1)`

	var exists bool
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, code).Scan(&exists); err != nil {
		r.log.Error("Failed to check confirmation code", zap.Error(err))
		return false, fmt.Errorf("check confirmation code: %w", err)
	}

	return exists, nil
}
