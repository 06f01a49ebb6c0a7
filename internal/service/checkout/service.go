package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNotOwner        = errors.New("account does not belong to user")
	ErrSessionNotFound = errors.New("checkout session not found")
)

// ProviderClient is the checkout slice of the provider API.
type ProviderClient interface {
	CreateCheckoutSession(ctx context.Context, params provider.CheckoutSessionParams) (*provider.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID, accountID string) (*provider.CheckoutSession, error)
}

type CreateSessionRequest struct {
	AccountID  string `json:"account_id" binding:"required,provider_account"`
	PriceID    string `json:"price_id" binding:"required"`
	Mode       string `json:"mode"`
	OrderID    string `json:"order_id"`
	SuccessURL string `json:"success_url" binding:"omitempty,url"`
	CancelURL  string `json:"cancel_url" binding:"omitempty,url"`
}

type Service struct {
	sessions repository.CheckoutRepository
	accounts repository.AccountRepository
	provider ProviderClient
	logger   zerolog.Logger
}

func NewService(
	sessions repository.CheckoutRepository,
	accounts repository.AccountRepository,
	providerClient ProviderClient,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sessions: sessions,
		accounts: accounts,
		provider: providerClient,
		logger:   logger,
	}
}

// CreateSession opens a checkout session on the caller's connected account.
// When an order id is given it is stamped into the session metadata and an
// order->account correlation is recorded, so the resulting webhook events can
// be attributed even when the provider omits the account on the envelope.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID, req *CreateSessionRequest) (*provider.CheckoutSession, error) {
	account, err := s.requireOwned(ctx, userID, req.AccountID)
	if err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = "payment"
	}

	session, err := s.provider.CreateCheckoutSession(ctx, provider.CheckoutSessionParams{
		AccountID:  req.AccountID,
		PriceID:    req.PriceID,
		Mode:       mode,
		OrderID:    req.OrderID,
		SuccessURL: orDefault(req.SuccessURL, account.StoreDomain, "/payments/success"),
		CancelURL:  orDefault(req.CancelURL, account.StoreDomain, "/payments/cancel"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	record := &model.CheckoutSession{
		SessionID: session.ID,
		UserID:    userID,
		AccountID: req.AccountID,
		OrderID:   req.OrderID,
	}

	// The session row and the correlation commit together; a session whose
	// webhook events cannot resolve their account must not exist.
	persist := s.sessions.Create
	if req.OrderID != "" {
		persist = s.sessions.CreateWithCorrelation
	}
	if err := persist(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist checkout session: %w", err)
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("account_id", req.AccountID).
		Str("order_id", req.OrderID).
		Msg("checkout session created")
	return session, nil
}

// GetSession fetches the live session state from the provider, scoped to the
// caller's own sessions.
func (s *Service) GetSession(ctx context.Context, userID uuid.UUID, sessionID string) (*provider.CheckoutSession, error) {
	record, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up checkout session: %w", err)
	}
	if record == nil || record.UserID != userID {
		return nil, ErrSessionNotFound
	}

	return s.provider.GetCheckoutSession(ctx, sessionID, record.AccountID)
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

func orDefault(explicit, storeDomain, path string) string {
	if explicit != "" {
		return explicit
	}
	if storeDomain == "" {
		return ""
	}
	return strings.TrimSuffix(storeDomain, "/") + path
}
