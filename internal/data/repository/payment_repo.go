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

type PaymentRepository interface {
	// CreateOrReuse inserts p unless the same owner already has a PENDING
	// payment for an identical draft, in which case that one is returned.
	CreateOrReuse(ctx context.Context, p *entity.Payment) (*entity.Payment, bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	SetFormToken(ctx context.Context, id uuid.UUID, token string) error
	List(ctx context.Context, status *entity.PaymentStatus, limit, offset int) ([]*entity.Payment, error)
	Count(ctx context.Context, status *entity.PaymentStatus) (int64, error)

	// MarkPaid flips PENDING to PAID in a single conditional update and
	// reports whether this call performed the transition.
	MarkPaid(ctx context.Context, s entity.Settlement) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, amount_cents, currency, status, order_draft, owner_key, draft_fingerprint,
		       gateway_charge_id, form_token, result_payload, linked_order_id, paid_at, created_at, updated_at`

func (r *paymentRepository) CreateOrReuse(ctx context.Context, p *entity.Payment) (*entity.Payment, bool, error) {
	draft, err := json.Marshal(p.OrderDraft)
	if err != nil {
		return nil, false, fmt.Errorf("encode order draft: %w", err)
	}

	insert := `
		INSERT INTO payments (id, amount_cents, currency, status, order_draft, owner_key,
		                      draft_fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_key, draft_fingerprint) WHERE status = 'PENDING' DO NOTHING
	`

	// The open draft can settle between a conflicting insert and the lookup;
	// a second insert attempt then succeeds.
	for attempt := 0; attempt < 2; attempt++ {
		result, err := database.Conn(ctx, r.db).Exec(ctx, insert,
			p.ID,
			p.AmountCents,
			p.Currency,
			p.Status,
			draft,
			p.OwnerKey,
			p.DraftFingerprint,
			p.CreatedAt,
			p.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create payment",
				zap.Error(err),
				zap.String("payment_id", p.ID.String()),
				zap.String("owner_key", p.OwnerKey),
			)
			return nil, false, fmt.Errorf("create payment %s: %w", p.ID.String(), err)
		}

		if result.RowsAffected() == 1 {
			return p, false, nil
		}

		existing, err := r.findOpenDraft(ctx, p.OwnerKey, p.DraftFingerprint)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
	}

	return nil, false, fmt.Errorf("create payment %s: open draft kept changing", p.ID.String())
}

func (r *paymentRepository) findOpenDraft(ctx context.Context, ownerKey, fingerprint string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE owner_key = $1 AND draft_fingerprint = $2 AND status = 'PENDING'
	`

	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, ownerKey, fingerprint))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find open draft", zap.Error(err), zap.String("owner_key", ownerKey))
		return nil, fmt.Errorf("find open draft for %s: %w", ownerKey, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) SetFormToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE payments
		SET form_token = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, token)
	if err != nil {
		r.log.Error("Failed to store form token", zap.Error(err), zap.String("payment_id", id.String()))
		return fmt.Errorf("store form token for payment %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", id.String())
	}

	return nil
}

func (r *paymentRepository) MarkPaid(ctx context.Context, s entity.Settlement) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'PAID',
		    gateway_charge_id = NULLIF($2, ''),
		    result_payload = $3,
		    linked_order_id = $4,
		    paid_at = $5,
		    updated_at = $5
		WHERE id = $1 AND status = 'PENDING'
	`

	var payload any
	if len(s.ResultPayload) > 0 {
		payload = s.ResultPayload
	}

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		s.PaymentID,
		s.GatewayChargeID,
		payload,
		s.OrderID,
		s.PaidAt,
	)
	if err != nil {
		r.log.Error("Failed to mark payment paid",
			zap.Error(err),
			zap.String("payment_id", s.PaymentID.String()),
		)
		return false, fmt.Errorf("mark payment %s paid: %w", s.PaymentID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) List(ctx context.Context, status *entity.PaymentStatus, limit, offset int) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, statusArg(status), limit, offset)
	if err != nil {
		r.log.Error("Failed to list payments", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (r *paymentRepository) Count(ctx context.Context, status *entity.PaymentStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM payments WHERE ($1::text IS NULL OR status = $1)`

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, statusArg(status)).Scan(&count); err != nil {
		r.log.Error("Failed to count payments", zap.Error(err))
		return 0, fmt.Errorf("count payments: %w", err)
	}

	return count, nil
}

func statusArg(status *entity.PaymentStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var (
		payment entity.Payment
		draft   []byte
	)

	err := row.Scan(
		&payment.ID,
		&payment.AmountCents,
		&payment.Currency,
		&payment.Status,
		&draft,
		&payment.OwnerKey,
		&payment.DraftFingerprint,
		&payment.GatewayChargeID,
		&payment.FormToken,
		&payment.ResultPayload,
		&payment.LinkedOrderID,
		&payment.PaidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(draft, &payment.OrderDraft); err != nil {
		return nil, fmt.Errorf("decode order draft of payment %s: %w", payment.ID.String(), err)
	}

	return &payment, nil
}
