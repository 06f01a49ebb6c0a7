package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
)

type checkoutRepository struct {
	BaseRepository
}

func NewCheckoutRepository(base BaseRepository) repository.CheckoutRepository {
	return &checkoutRepository{base}
}

func (r *checkoutRepository) Create(ctx context.Context, session *model.CheckoutSession) error {
	query := `
		INSERT INTO checkout_sessions (session_id, user_id, account_id, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	session.CreatedAt = time.Now().UTC()

	err := r.db.GetContext(ctx, &session.ID, query,
		session.SessionID,
		session.UserID,
		session.AccountID,
		session.OrderID,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

func (r *checkoutRepository) CreateWithCorrelation(ctx context.Context, session *model.CheckoutSession) error {
	session.CreatedAt = time.Now().UTC()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessionQuery := `
			INSERT INTO checkout_sessions (session_id, user_id, account_id, order_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		err := tx.GetContext(ctx, &session.ID, sessionQuery,
			session.SessionID,
			session.UserID,
			session.AccountID,
			session.OrderID,
			session.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create checkout session: %w", err)
		}

		correlationQuery := `
			INSERT INTO order_correlations (order_id, account_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (order_id) DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, correlationQuery, session.OrderID, session.AccountID, session.CreatedAt); err != nil {
			return fmt.Errorf("failed to create order correlation: %w", err)
		}
		return nil
	})
}

func (r *checkoutRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	query := `
		SELECT id, session_id, user_id, account_id, order_id, created_at
		FROM checkout_sessions
		WHERE session_id = $1
	`
	var session model.CheckoutSession
	err := r.db.GetContext(ctx, &session, query, sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session: %w", err)
	}
	return &session, nil
}
