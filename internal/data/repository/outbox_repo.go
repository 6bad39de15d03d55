package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// OutboxRepository stores pending confirmation messages. A message is claimed
// by setting status 'sending' with a lease; an expired lease makes it
// claimable again.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg *entity.OutboxMessage) error
	Claim(ctx context.Context, paymentID uuid.UUID, lockedUntil time.Time) (*entity.OutboxMessage, error)
	ClaimDue(ctx context.Context, limit int, lockedUntil time.Time) ([]*entity.OutboxMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.OutboxMessage, error)
}

type outboxRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOutboxRepository(db database.PgxIface, log *zap.Logger) OutboxRepository {
	return &outboxRepository{
		db:  db,
		log: log.With(zap.String("repository", "outbox")),
	}
}

const outboxColumns = `id, payment_id, payload, status, attempts, next_attempt_at, locked_until,
		       last_error, sent_at, created_at, updated_at`

func (r *outboxRepository) Enqueue(ctx context.Context, msg *entity.OutboxMessage) error {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("encode confirmation: %w", err)
	}

	query := `
		INSERT INTO notification_outbox (id, payment_id, payload, status, attempts, next_attempt_at,
		                                 created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7)
	`

	_, err = database.Conn(ctx, r.db).Exec(ctx, query,
		msg.ID,
		msg.PaymentID,
		payload,
		msg.Status,
		msg.NextAttemptAt,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to enqueue confirmation",
			zap.Error(err),
			zap.String("payment_id", msg.PaymentID.String()),
		)
		return fmt.Errorf("enqueue confirmation for payment %s: %w", msg.PaymentID.String(), err)
	}

	return nil
}

func (r *outboxRepository) Claim(ctx context.Context, paymentID uuid.UUID, lockedUntil time.Time) (*entity.OutboxMessage, error) {
	query := `
		UPDATE notification_outbox
		SET status = 'sending', locked_until = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE payment_id = $1
		  AND ((status = 'pending' AND (attempts = 0 OR next_attempt_at <= NOW()))
		       OR (status = 'sending' AND locked_until < NOW()))
		RETURNING ` + outboxColumns

	msg, err := scanOutbox(database.Conn(ctx, r.db).QueryRow(ctx, query, paymentID, lockedUntil))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to claim confirmation", zap.Error(err), zap.String("payment_id", paymentID.String()))
		return nil, fmt.Errorf("claim confirmation for payment %s: %w", paymentID.String(), err)
	}

	return msg, nil
}

func (r *outboxRepository) ClaimDue(ctx context.Context, limit int, lockedUntil time.Time) ([]*entity.OutboxMessage, error) {
	query := `
		UPDATE notification_outbox o
		SET status = 'sending', locked_until = $2, attempts = o.attempts + 1, updated_at = NOW()
		WHERE o.id IN (
			SELECT id FROM notification_outbox
			WHERE (status = 'pending' AND next_attempt_at <= NOW())
			   OR (status = 'sending' AND locked_until < NOW())
			ORDER BY next_attempt_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, limit, lockedUntil)
	if err != nil {
		r.log.Error("Failed to claim due confirmations", zap.Error(err), zap.Int("limit", limit))
		return nil, fmt.Errorf("claim due confirmations: %w", err)
	}
	defer rows.Close()

	var messages []*entity.OutboxMessage
	for rows.Next() {
		msg, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = $2, locked_until = NULL, last_error = NULL, updated_at = $2
		WHERE id = $1
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, id, at); err != nil {
		r.log.Error("Failed to mark confirmation sent", zap.Error(err), zap.String("outbox_id", id.String()))
		return fmt.Errorf("mark confirmation %s sent: %w", id.String(), err)
	}
	return nil
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error {
	query := `
		UPDATE notification_outbox
		SET status = 'pending', next_attempt_at = $2, locked_until = NULL,
		    last_error = LEFT($3, 255), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, id, next, lastErr); err != nil {
		r.log.Error("Failed to reschedule confirmation", zap.Error(err), zap.String("outbox_id", id.String()))
		return fmt.Errorf("reschedule confirmation %s: %w", id.String(), err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	query := `
		UPDATE notification_outbox
		SET status = 'failed', locked_until = NULL, last_error = LEFT($2, 255), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, id, lastErr); err != nil {
		r.log.Error("Failed to mark confirmation failed", zap.Error(err), zap.String("outbox_id", id.String()))
		return fmt.Errorf("mark confirmation %s failed: %w", id.String(), err)
	}
	return nil
}

func (r *outboxRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.OutboxMessage, error) {
	query := `SELECT ` + outboxColumns + ` FROM notification_outbox WHERE payment_id = $1`

	msg, err := scanOutbox(database.Conn(ctx, r.db).QueryRow(ctx, query, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find confirmation for payment %s: %w", paymentID.String(), err)
	}
	return msg, nil
}

func scanOutbox(row pgx.Row) (*entity.OutboxMessage, error) {
	var (
		msg     entity.OutboxMessage
		payload []byte
	)

	err := row.Scan(
		&msg.ID,
		&msg.PaymentID,
		&payload,
		&msg.Status,
		&msg.Attempts,
		&msg.NextAttemptAt,
		&msg.LockedUntil,
		&msg.LastError,
		&msg.SentAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &msg.Payload); err != nil {
		return nil, fmt.Errorf("decode confirmation %s: %w", msg.ID.String(), err)
	}

	return &msg, nil
}
