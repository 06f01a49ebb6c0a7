package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
)

type dispatchRepository struct {
	BaseRepository
}

func NewDispatchRepository(base BaseRepository) repository.DispatchRepository {
	return &dispatchRepository{base}
}

func (r *dispatchRepository) GetOrCreate(ctx context.Context, eventID, accountID, orderID string, status model.ProcessedStatus) (*model.DispatchAttempt, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO store_dispatches (event_id, account_id, order_id, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		ON CONFLICT (event_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, eventID, accountID, orderID, status, now); err != nil {
		return nil, fmt.Errorf("failed to create dispatch attempt: %w", err)
	}

	return r.Get(ctx, eventID)
}

func (r *dispatchRepository) Get(ctx context.Context, eventID string) (*model.DispatchAttempt, error) {
	query := `
		SELECT id, event_id, account_id, order_id, status, attempts, delivered_at, created_at, updated_at
		FROM store_dispatches
		WHERE event_id = $1
	`
	var attempt model.DispatchAttempt
	err := r.db.GetContext(ctx, &attempt, query, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatch attempt: %w", err)
	}
	return &attempt, nil
}

func (r *dispatchRepository) UpdateAttempts(ctx context.Context, eventID string, attempts int) error {
	// GREATEST keeps the counter monotonic under concurrent retries.
	query := `
		UPDATE store_dispatches
		SET attempts = GREATEST(attempts, $1), updated_at = $2
		WHERE event_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, attempts, time.Now().UTC(), eventID)
	if err != nil {
		return fmt.Errorf("failed to update dispatch attempts: %w", err)
	}
	return nil
}

func (r *dispatchRepository) MarkDelivered(ctx context.Context, eventID string, attempts int, deliveredAt time.Time) error {
	query := `
		UPDATE store_dispatches
		SET attempts = GREATEST(attempts, $1),
			delivered_at = COALESCE(delivered_at, $2),
			updated_at = $3
		WHERE event_id = $4
	`
	_, err := r.db.ExecContext(ctx, query, attempts, deliveredAt, time.Now().UTC(), eventID)
	if err != nil {
		return fmt.Errorf("failed to mark dispatch delivered: %w", err)
	}
	return nil
}
