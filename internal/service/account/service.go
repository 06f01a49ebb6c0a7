package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository"
)

var (
	ErrAccountExists   = errors.New("user already has a connected account")
	ErrAccountNotFound = errors.New("account not found")
	ErrNotOwner        = errors.New("account does not belong to user")
)

// ProviderClient is the provisioning slice of the provider API.
type ProviderClient interface {
	CreateAccount(ctx context.Context, email string) (*provider.Account, error)
}

type Service struct {
	accounts repository.AccountRepository
	provider ProviderClient
	logger   zerolog.Logger
}

func NewService(accounts repository.AccountRepository, providerClient ProviderClient, logger zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		provider: providerClient,
		logger:   logger,
	}
}

// Connect provisions a connected account at the provider and records it
// locally. One account per user.
func (s *Service) Connect(ctx context.Context, userID uuid.UUID, email, storeDomain string) (*model.PaymentAccount, error) {
	existing, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	created, err := s.provider.CreateAccount(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider account: %w", err)
	}

	account := &model.PaymentAccount{
		ID:          uuid.New(),
		UserID:      userID,
		AccountID:   created.ID,
		StoreDomain: storeDomain,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to persist account: %w", err)
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("account_id", account.AccountID).
		Msg("connected account provisioned")
	return account, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.PaymentAccount, error) {
	return s.accounts.ListByUserID(ctx, userID)
}

// UpdateStoreDomain changes where dispatches for the account are delivered.
// Ownership is checked so a user cannot repoint another merchant's callbacks.
func (s *Service) UpdateStoreDomain(ctx context.Context, userID uuid.UUID, accountID, storeDomain string) (*model.PaymentAccount, error) {
	account, err := s.requireOwned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateStoreDomain(ctx, accountID, storeDomain); err != nil {
		return nil, fmt.Errorf("failed to update store domain: %w", err)
	}
	account.StoreDomain = storeDomain

	s.logger.Info().
		Str("account_id", accountID).
		Str("store_domain", storeDomain).
		Msg("store domain updated")
	return account, nil
}

func (s *Service) requireOwned(ctx context.Context, userID uuid.UUID, accountID string) (*model.PaymentAccount, error) {
	account, err := s.accounts.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.UserID != userID {
		return nil, ErrNotOwner
	}
	return account, nil
}
