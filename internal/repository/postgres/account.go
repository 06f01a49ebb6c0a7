package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/repository"
)

type accountRepository struct {
	BaseRepository
}

func NewAccountRepository(base BaseRepository) repository.AccountRepository {
	return &accountRepository{base}
}

func (r *accountRepository) Create(ctx context.Context, account *model.PaymentAccount) error {
	query := `
		INSERT INTO payment_accounts (id, user_id, account_id, store_domain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	account.ID = uuid.New()
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.UserID,
		account.AccountID,
		account.StoreDomain,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment account: %w", err)
	}
	return nil
}

func (r *accountRepository) GetByAccountID(ctx context.Context, accountID string) (*model.PaymentAccount, error) {
	query := `
		SELECT id, user_id, account_id, store_domain, created_at, updated_at
		FROM payment_accounts
		WHERE account_id = $1
	`
	var account model.PaymentAccount
	err := r.db.GetContext(ctx, &account, query, accountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.PaymentAccount, error) {
	query := `
		SELECT id, user_id, account_id, store_domain, created_at, updated_at
		FROM payment_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`
	var account model.PaymentAccount
	err := r.db.GetContext(ctx, &account, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context) ([]*model.PaymentAccount, error) {
	query := `
		SELECT id, user_id, account_id, store_domain, created_at, updated_at
		FROM payment_accounts
		ORDER BY created_at ASC
	`
	var accounts []*model.PaymentAccount
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list payment accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*model.PaymentAccount, error) {
	query := `
		SELECT id, user_id, account_id, store_domain, created_at, updated_at
		FROM payment_accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	var accounts []*model.PaymentAccount
	if err := r.db.SelectContext(ctx, &accounts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list payment accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) UpdateStoreDomain(ctx context.Context, accountID, storeDomain string) error {
	query := `
		UPDATE payment_accounts
		SET store_domain = $1, updated_at = $2
		WHERE account_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, storeDomain, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update store domain: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment account not found")
	}
	return nil
}
