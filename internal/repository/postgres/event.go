package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
)

type eventRepository struct {
	BaseRepository
}

func NewEventRepository(base BaseRepository) repository.EventRepository {
	return &eventRepository{base}
}

func (r *eventRepository) InsertRawEventIfAbsent(ctx context.Context, eventID, eventType string, payload []byte) (bool, error) {
	query := `
		INSERT INTO webhook_logs (event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, eventID, eventType, payload, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert raw event log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *eventRepository) ClaimProcessedEvent(ctx context.Context, event *model.ProcessedEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (event_id, status, source, order_id, account_id, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`
	event.ProcessedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.Status,
		event.Source,
		event.OrderID,
		event.AccountID,
		event.ProcessedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim processed event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *eventRepository) GetProcessedEvent(ctx context.Context, eventID string) (*model.ProcessedEvent, error) {
	query := `
		SELECT id, event_id, status, source, order_id, account_id, processed_at
		FROM webhook_events
		WHERE event_id = $1
	`
	var event model.ProcessedEvent
	err := r.db.GetContext(ctx, &event, query, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processed event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) UpdateProcessedOutcome(ctx context.Context, eventID string, status model.ProcessedStatus, accountID, orderID string) error {
	query := `
		UPDATE webhook_events
		SET status = $1, account_id = $2, order_id = $3
		WHERE event_id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, accountID, orderID, eventID)
	if err != nil {
		return fmt.Errorf("failed to update processed event outcome: %w", err)
	}
	return nil
}
