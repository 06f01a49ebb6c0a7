package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
)

type sweepRepository struct {
	BaseRepository
}

func NewSweepRepository(base BaseRepository) repository.SweepRepository {
	return &sweepRepository{base}
}

func (r *sweepRepository) StartRun(ctx context.Context, accountID string) (*model.SweepRun, error) {
	run := &model.SweepRun{
		AccountID: accountID,
		StartedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO webhook_sync_logs (account_id, started_at)
		VALUES ($1, $2)
		RETURNING id
	`
	if err := r.db.GetContext(ctx, &run.ID, query, run.AccountID, run.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to start sweep run: %w", err)
	}
	return run, nil
}

func (r *sweepRepository) FinishRun(ctx context.Context, runID int64, recovered, ignored, failed int, message string) error {
	query := `
		UPDATE webhook_sync_logs
		SET finished_at = $1,
			recovered_events = $2,
			ignored_events = $3,
			failed_notifications = $4,
			message = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), recovered, ignored, failed, message, runID)
	if err != nil {
		return fmt.Errorf("failed to finish sweep run: %w", err)
	}
	return nil
}

func (r *sweepRepository) ListRuns(ctx context.Context, accountID string, limit int) ([]*model.SweepRun, error) {
	query := `
		SELECT id, account_id, started_at, finished_at, recovered_events, ignored_events, failed_notifications, message
		FROM webhook_sync_logs
		WHERE account_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	var runs []*model.SweepRun
	err := r.db.SelectContext(ctx, &runs, query, accountID, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	return runs, nil
}
