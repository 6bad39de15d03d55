package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// IPNEventRepository keeps the raw log of inbound notifications
type IPNEventRepository interface {
	Create(ctx context.Context, event *entity.IPNEvent) error
	Finish(ctx context.Context, id uuid.UUID, correlationID string, outcome entity.IPNOutcome, reason string, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.IPNEvent, error)
	List(ctx context.Context, outcome *entity.IPNOutcome, limit, offset int) ([]*entity.IPNEvent, error)
	Count(ctx context.Context, outcome *entity.IPNOutcome) (int64, error)
}

type ipnEventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewIPNEventRepository(db database.PgxIface, log *zap.Logger) IPNEventRepository {
	return &ipnEventRepository{
		db:  db,
		log: log.With(zap.String("repository", "ipn_event")),
	}
}

const ipnEventColumns = `id, COALESCE(hash_key, ''), COALESCE(correlation_id, ''), raw_body, outcome,
		       COALESCE(reason, ''), received_at, processed_at`

func (r *ipnEventRepository) Create(ctx context.Context, event *entity.IPNEvent) error {
	query := `
		INSERT INTO ipn_events (id, hash_key, correlation_id, raw_body, outcome, reason, received_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		event.ID,
		event.HashKey,
		event.CorrelationID,
		event.RawBody,
		event.Outcome,
		event.Reason,
		event.ReceivedAt,
	)
	if err != nil {
		r.log.Error("Failed to record IPN event", zap.Error(err), zap.String("event_id", event.ID.String()))
		return fmt.Errorf("record ipn event %s: %w", event.ID.String(), err)
	}

	return nil
}

func (r *ipnEventRepository) Finish(ctx context.Context, id uuid.UUID, correlationID string, outcome entity.IPNOutcome, reason string, at time.Time) error {
	query := `
		UPDATE ipn_events
		SET correlation_id = COALESCE(NULLIF($2, ''), correlation_id),
		    outcome = $3,
		    reason = NULLIF(LEFT($4, 255), ''),
		    processed_at = $5
		WHERE id = $1
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query, id, correlationID, outcome, reason, at)
	if err != nil {
		r.log.Error("Failed to finish IPN event",
			zap.Error(err),
			zap.String("event_id", id.String()),
			zap.String("outcome", string(outcome)),
		)
		return fmt.Errorf("finish ipn event %s: %w", id.String(), err)
	}

	return nil
}

func (r *ipnEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.IPNEvent, error) {
	query := `SELECT ` + ipnEventColumns + ` FROM ipn_events WHERE id = $1`

	event, err := scanIPNEvent(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find IPN event", zap.Error(err), zap.String("event_id", id.String()))
		return nil, fmt.Errorf("find ipn event %s: %w", id.String(), err)
	}

	return event, nil
}

func (r *ipnEventRepository) List(ctx context.Context, outcome *entity.IPNOutcome, limit, offset int) ([]*entity.IPNEvent, error) {
	query := `SELECT ` + ipnEventColumns + `
		FROM ipn_events
		WHERE ($1::text IS NULL OR outcome = $1)
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, outcomeArg(outcome), limit, offset)
	if err != nil {
		r.log.Error("Failed to list IPN events", zap.Error(err))
		return nil, fmt.Errorf("list ipn events: %w", err)
	}
	defer rows.Close()

	var events []*entity.IPNEvent
	for rows.Next() {
		event, err := scanIPNEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ipn event row: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *ipnEventRepository) Count(ctx context.Context, outcome *entity.IPNOutcome) (int64, error) {
	query := `SELECT COUNT(*) FROM ipn_events WHERE ($1::text IS NULL OR outcome = $1)`

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, outcomeArg(outcome)).Scan(&count); err != nil {
		r.log.Error("Failed to count IPN events", zap.Error(err))
		return 0, fmt.Errorf("count ipn events: %w", err)
	}

	return count, nil
}

func outcomeArg(outcome *entity.IPNOutcome) *string {
	if outcome == nil {
		return nil
	}
	s := string(*outcome)
	return &s
}

func scanIPNEvent(row pgx.Row) (*entity.IPNEvent, error) {
	var event entity.IPNEvent
	err := row.Scan(
		&event.ID,
		&event.HashKey,
		&event.CorrelationID,
		&event.RawBody,
		&event.Outcome,
		&event.Reason,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
