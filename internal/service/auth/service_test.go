package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/platform-api/internal/config"
	"github.com/paybridge/platform-api/internal/model"
)

type fakeUserRepo struct {
	byEmail map[string]*model.User
	byID    map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return f.byID[id], nil
}

type fakeAccountRepo struct {
	byUser map[uuid.UUID]*model.PaymentAccount
}

func (f *fakeAccountRepo) Create(_ context.Context, account *model.PaymentAccount) error {
	f.byUser[account.UserID] = account
	return nil
}

func (f *fakeAccountRepo) GetByAccountID(context.Context, string) (*model.PaymentAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.PaymentAccount, error) {
	return f.byUser[userID], nil
}

func (f *fakeAccountRepo) List(context.Context) ([]*model.PaymentAccount, error) { return nil, nil }

func (f *fakeAccountRepo) ListByUserID(context.Context, uuid.UUID) ([]*model.PaymentAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) UpdateStoreDomain(context.Context, string, string) error { return nil }

func newTestService() (*Service, *fakeUserRepo, *fakeAccountRepo) {
	users := &fakeUserRepo{byEmail: map[string]*model.User{}, byID: map[uuid.UUID]*model.User{}}
	accounts := &fakeAccountRepo{byUser: map[uuid.UUID]*model.PaymentAccount{}}
	service := NewService(users, accounts, config.JWTConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, zerolog.Nop())
	return service, users, accounts
}

func TestRegisterAndLogin(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	user, err := service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	tokens, err := service.Login(ctx, &model.LoginRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := service.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Empty(t, claims.AccountID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	_, err := service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "other-pass"})
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestLoginWrongPassword(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	_, err := service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = service.Login(ctx, &model.LoginRequest{Email: "merchant@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, &model.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccessTokenCarriesAccountClaim(t *testing.T) {
	service, _, accounts := newTestService()
	ctx := context.Background()

	user, err := service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	accounts.byUser[user.ID] = &model.PaymentAccount{UserID: user.ID, AccountID: "acct_1"}

	tokens, err := service.Login(ctx, &model.LoginRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	claims, err := service.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acct_1", claims.AccountID)
}

func TestRefreshRotatesTokens(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	_, err := service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	tokens, err := service.Login(ctx, &model.LoginRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	refreshed, err := service.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = service.Refresh(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens cannot be used to refresh")
}

func TestParseAccessTokenRejectsRefreshToken(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	_, err := service.Register(ctx, &model.RegisterRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	tokens, err := service.Login(ctx, &model.LoginRequest{Email: "merchant@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = service.ParseAccessToken(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
