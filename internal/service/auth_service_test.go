package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/clubhub-api/internal/models"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type captureRecorder struct {
	entries []*models.AuditLog
}

func (r *captureRecorder) Record(entry *models.AuditLog) {
	r.entries = append(r.entries, entry)
}

type mockAuthUsers struct {
	user              *models.User
	refreshTokens     map[string]*models.RefreshToken
	updatePasswordErr error
	lastLoginUpdated  bool
	revokedAll        bool
}

func (m *mockAuthUsers) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if m.user == nil || (m.user.Email != identifier && m.user.Username != identifier) {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthUsers) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if m.user != nil && m.user.ID == id {
		m.user.PasswordHash = &passwordHash
	}
	return nil
}

func (m *mockAuthUsers) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthUsers) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthUsers) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthUsers) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

type mockActivationTokens struct {
	token   *models.ActivationToken
	usedErr error
}

func (m *mockActivationTokens) FindActivationToken(ctx context.Context, token string) (*models.ActivationToken, error) {
	if m.token == nil || m.token.Token != token {
		return nil, sql.ErrNoRows
	}
	return m.token, nil
}

func (m *mockActivationTokens) MarkActivationTokenUsed(ctx context.Context, id string, usedAt time.Time) error {
	if m.usedErr != nil {
		return m.usedErr
	}
	if m.token == nil || m.token.ID != id || m.token.UsedAt != nil {
		return sql.ErrNoRows
	}
	m.token.UsedAt = &usedAt
	return nil
}

func newAuthService(users *mockAuthUsers, tokens *mockActivationTokens) (*AuthService, *captureRecorder) {
	recorder := &captureRecorder{}
	svc := NewAuthService(users, tokens, recorder, nil, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
	return svc, recorder
}

func activatedUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	hashValue := string(hash)
	return &models.User{
		ID:           "u1",
		Email:        "casey@example.edu",
		Username:     "casey_v",
		PasswordHash: &hashValue,
		Role:         models.RoleStudent,
		Active:       true,
	}
}

func TestAuthServiceLoginByEmail(t *testing.T) {
	users := &mockAuthUsers{user: activatedUser("Sup3rSecret")}
	svc, recorder := newAuthService(users, &mockActivationTokens{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "casey@example.edu", Password: "Sup3rSecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "casey_v", res.User.Username)
	assert.True(t, users.lastLoginUpdated)
	assert.Len(t, recorder.entries, 1)
}

func TestAuthServiceLoginByUsername(t *testing.T) {
	users := &mockAuthUsers{user: activatedUser("Sup3rSecret")}
	svc, _ := newAuthService(users, &mockActivationTokens{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "Casey_V", Password: "Sup3rSecret"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := &mockAuthUsers{user: activatedUser("Sup3rSecret")}
	svc, _ := newAuthService(users, &mockActivationTokens{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "casey@example.edu", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginNotActivated(t *testing.T) {
	user := activatedUser("Sup3rSecret")
	user.PasswordHash = nil
	users := &mockAuthUsers{user: user}
	svc, _ := newAuthService(users, &mockActivationTokens{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "casey@example.edu", Password: "Sup3rSecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotActivated.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	user := activatedUser("Sup3rSecret")
	user.Active = false
	svc, _ := newAuthService(&mockAuthUsers{user: user}, &mockActivationTokens{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "casey@example.edu", Password: "Sup3rSecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceActivateSetsPasswordAndLogsIn(t *testing.T) {
	user := activatedUser("")
	user.PasswordHash = nil
	users := &mockAuthUsers{user: user}
	tokens := &mockActivationTokens{token: &models.ActivationToken{
		ID:        "t1",
		UserID:    "u1",
		RequestID: "r1",
		Token:     "activation-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc, recorder := newAuthService(users, tokens)

	res, err := svc.Activate(context.Background(), models.ActivateRequest{Token: "activation-token", Password: "Chosen1Pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	require.NotNil(t, user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("Chosen1Pass")))
	assert.NotNil(t, tokens.token.UsedAt)
	assert.Len(t, recorder.entries, 1)
	assert.Equal(t, models.AuditActionActivate, recorder.entries[0].Action)
}

func TestAuthServiceActivateExpiredToken(t *testing.T) {
	user := activatedUser("")
	user.PasswordHash = nil
	tokens := &mockActivationTokens{token: &models.ActivationToken{
		ID:        "t1",
		UserID:    "u1",
		Token:     "activation-token",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}}
	svc, _ := newAuthService(&mockAuthUsers{user: user}, tokens)

	_, err := svc.Activate(context.Background(), models.ActivateRequest{Token: "activation-token", Password: "Chosen1Pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrActivationInvalid.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceActivateUsedTokenRejected(t *testing.T) {
	used := time.Now().UTC().Add(-time.Hour)
	user := activatedUser("")
	user.PasswordHash = nil
	tokens := &mockActivationTokens{token: &models.ActivationToken{
		ID:        "t1",
		UserID:    "u1",
		Token:     "activation-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		UsedAt:    &used,
	}}
	svc, _ := newAuthService(&mockAuthUsers{user: user}, tokens)

	_, err := svc.Activate(context.Background(), models.ActivateRequest{Token: "activation-token", Password: "Chosen1Pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrActivationInvalid.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceActivateWeakPassword(t *testing.T) {
	svc, _ := newAuthService(&mockAuthUsers{}, &mockActivationTokens{})

	_, err := svc.Activate(context.Background(), models.ActivateRequest{Token: "whatever", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceActivateAlreadyActivatedAccount(t *testing.T) {
	user := activatedUser("Existing1Pass")
	tokens := &mockActivationTokens{token: &models.ActivationToken{
		ID:        "t1",
		UserID:    "u1",
		Token:     "activation-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
	svc, _ := newAuthService(&mockAuthUsers{user: user}, tokens)

	_, err := svc.Activate(context.Background(), models.ActivateRequest{Token: "activation-token", Password: "Chosen1Pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrActivationInvalid.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	users := &mockAuthUsers{user: activatedUser("Sup3rSecret")}
	svc, _ := newAuthService(users, &mockActivationTokens{})

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "casey_v", Password: "Sup3rSecret"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)
	assert.True(t, users.refreshTokens[login.RefreshToken].Revoked)
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	users := &mockAuthUsers{user: activatedUser("Sup3rSecret")}
	svc, _ := newAuthService(users, &mockActivationTokens{})

	login, err := svc.Login(context.Background(), models.LoginRequest{Identifier: "casey_v", Password: "Sup3rSecret"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "casey_v", claims.Username)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	users := &mockAuthUsers{user: activatedUser("Old1Password")}
	svc, _ := newAuthService(users, &mockActivationTokens{})

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "Old1Password",
		NewPassword: "New1Password",
	})
	require.NoError(t, err)
	assert.True(t, users.revokedAll)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*users.user.PasswordHash), []byte("New1Password")))
}
