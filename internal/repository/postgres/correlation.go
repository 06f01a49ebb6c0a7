package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
)

type correlationRepository struct {
	BaseRepository
}

func NewCorrelationRepository(base BaseRepository) repository.CorrelationRepository {
	return &correlationRepository{base}
}

func (r *correlationRepository) CreateIfAbsent(ctx context.Context, orderID, accountID string) error {
	query := `
		INSERT INTO order_correlations (order_id, account_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, orderID, accountID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create order correlation: %w", err)
	}
	return nil
}

func (r *correlationRepository) GetByOrderID(ctx context.Context, orderID string) (*model.OrderCorrelation, error) {
	query := `
		SELECT id, order_id, account_id, created_at
		FROM order_correlations
		WHERE order_id = $1
	`
	var corr model.OrderCorrelation
	err := r.db.GetContext(ctx, &corr, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order correlation: %w", err)
	}
	return &corr, nil
}
