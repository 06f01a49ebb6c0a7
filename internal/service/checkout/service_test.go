package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/platform-api/internal/model"
	"github.com/paybridge/platform-api/internal/provider"
)

type fakeAccountRepo struct {
	byAccountID map[string]*model.PaymentAccount
}

func (f *fakeAccountRepo) Create(context.Context, *model.PaymentAccount) error { return nil }

func (f *fakeAccountRepo) GetByAccountID(_ context.Context, accountID string) (*model.PaymentAccount, error) {
	return f.byAccountID[accountID], nil
}

func (f *fakeAccountRepo) GetByUserID(context.Context, uuid.UUID) (*model.PaymentAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) List(context.Context) ([]*model.PaymentAccount, error) { return nil, nil }

func (f *fakeAccountRepo) ListByUserID(context.Context, uuid.UUID) ([]*model.PaymentAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) UpdateStoreDomain(context.Context, string, string) error { return nil }

type fakeCheckoutRepo struct {
	sessions     map[string]*model.CheckoutSession
	correlations map[string]string
}

func (f *fakeCheckoutRepo) Create(_ context.Context, session *model.CheckoutSession) error {
	f.sessions[session.SessionID] = session
	return nil
}

func (f *fakeCheckoutRepo) CreateWithCorrelation(_ context.Context, session *model.CheckoutSession) error {
	f.sessions[session.SessionID] = session
	if _, ok := f.correlations[session.OrderID]; !ok {
		f.correlations[session.OrderID] = session.AccountID
	}
	return nil
}

func (f *fakeCheckoutRepo) GetBySessionID(_ context.Context, sessionID string) (*model.CheckoutSession, error) {
	return f.sessions[sessionID], nil
}

type fakeProviderClient struct {
	lastParams provider.CheckoutSessionParams
}

func (f *fakeProviderClient) CreateCheckoutSession(_ context.Context, params provider.CheckoutSessionParams) (*provider.CheckoutSession, error) {
	f.lastParams = params
	return &provider.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (f *fakeProviderClient) GetCheckoutSession(_ context.Context, sessionID, _ string) (*provider.CheckoutSession, error) {
	return &provider.CheckoutSession{ID: sessionID, PaymentStatus: "paid"}, nil
}

type fixture struct {
	service  *Service
	sessions *fakeCheckoutRepo
	provider *fakeProviderClient
	userID   uuid.UUID
}

func newFixture() *fixture {
	userID := uuid.New()
	f := &fixture{
		sessions: &fakeCheckoutRepo{
			sessions:     map[string]*model.CheckoutSession{},
			correlations: map[string]string{},
		},
		provider: &fakeProviderClient{},
		userID:   userID,
	}
	accounts := &fakeAccountRepo{byAccountID: map[string]*model.PaymentAccount{
		"acct_1": {UserID: userID, AccountID: "acct_1", StoreDomain: "https://shop.example"},
	}}
	f.service = NewService(f.sessions, accounts, f.provider, zerolog.Nop())
	return f
}

func TestCreateSessionRecordsCorrelation(t *testing.T) {
	f := newFixture()

	session, err := f.service.CreateSession(context.Background(), f.userID, &CreateSessionRequest{
		AccountID: "acct_1",
		PriceID:   "price_1",
		OrderID:   "order-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "order-42", f.provider.lastParams.OrderID)
	assert.Equal(t, "acct_1", f.sessions.correlations["order-42"],
		"the correlation lets later webhooks resolve the account")
	assert.Equal(t, "order-42", f.sessions.sessions["cs_1"].OrderID)
}

func TestCreateSessionDefaultsRedirectURLs(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateSession(context.Background(), f.userID, &CreateSessionRequest{
		AccountID: "acct_1",
		PriceID:   "price_1",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example/payments/success", f.provider.lastParams.SuccessURL)
	assert.Equal(t, "https://shop.example/payments/cancel", f.provider.lastParams.CancelURL)
	assert.Equal(t, "payment", f.provider.lastParams.Mode)
	assert.Empty(t, f.sessions.correlations, "no correlation without an order id")
}

func TestCreateSessionRejectsForeignAccount(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateSession(context.Background(), uuid.New(), &CreateSessionRequest{
		AccountID: "acct_1",
		PriceID:   "price_1",
	})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.service.CreateSession(context.Background(), f.userID, &CreateSessionRequest{
		AccountID: "acct_unknown",
		PriceID:   "price_1",
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestGetSessionScopedToOwner(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateSession(context.Background(), f.userID, &CreateSessionRequest{
		AccountID: "acct_1",
		PriceID:   "price_1",
	})
	require.NoError(t, err)

	session, err := f.service.GetSession(context.Background(), f.userID, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", session.PaymentStatus)

	_, err = f.service.GetSession(context.Background(), uuid.New(), "cs_1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
