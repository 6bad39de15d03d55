package repository

import (
	"context"
	"fmt"

	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartRepository interface {
	// CloseOpenByUser converts every open cart of the user and returns how
	// many were touched. Zero is not an error.
	CloseOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CloseOpenBySession(ctx context.Context, sessionID string) (int64, error)
}

type cartRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCartRepository(db database.PgxIface, log *zap.Logger) CartRepository {
	return &cartRepository{
		db:  db,
		log: log.With(zap.String("repository", "cart")),
	}
}

func (r *cartRepository) CloseOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE carts
		SET status = 'converted', updated_at = NOW()
		WHERE user_id = $1 AND status = 'open'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to close user cart", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, fmt.Errorf("close cart of user %s: %w", userID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *cartRepository) CloseOpenBySession(ctx context.Context, sessionID string) (int64, error) {
	query := `
		UPDATE carts
		SET status = 'converted', updated_at = NOW()
		WHERE session_id = $1 AND user_id IS NULL AND status = 'open'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, sessionID)
	if err != nil {
		r.log.Error("Failed to close session cart", zap.Error(err))
		return 0, fmt.Errorf("close cart of session: %w", err)
	}

	return result.RowsAffected(), nil
}
