package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
)

type mockAvailabilityUsers struct {
	byEmail     *models.User
	byUsername  *models.User
	emailErr    error
	usernameErr error
}

func (m *mockAvailabilityUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.emailErr != nil {
		return nil, m.emailErr
	}
	if m.byEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmail, nil
}

func (m *mockAvailabilityUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.usernameErr != nil {
		return nil, m.usernameErr
	}
	if m.byUsername == nil {
		return nil, sql.ErrNoRows
	}
	return m.byUsername, nil
}

type mockAvailabilityRequests struct {
	claim    *models.AccountRequest
	claimErr error
}

func (m *mockAvailabilityRequests) FindClaim(ctx context.Context, field models.IdentityKind, value string) (*models.AccountRequest, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	if m.claim == nil {
		return nil, sql.ErrNoRows
	}
	return m.claim, nil
}

func newAvailabilityService(users *mockAvailabilityUsers, requests *mockAvailabilityRequests) *AvailabilityService {
	return NewAvailabilityService(users, requests, nil, zap.NewNop(), AvailabilityConfig{})
}

func TestAvailabilityFreeUsername(t *testing.T) {
	svc := newAvailabilityService(&mockAvailabilityUsers{}, &mockAvailabilityRequests{})

	result := svc.Check(context.Background(), models.IdentityUsername, "fresh_name")
	require.NotNil(t, result.Available)
	assert.True(t, *result.Available)
}

func TestAvailabilityUsernameHeldByUser(t *testing.T) {
	users := &mockAvailabilityUsers{byUsername: &models.User{ID: "u1", Active: false}}
	svc := newAvailabilityService(users, &mockAvailabilityRequests{})

	// Even inactive accounts keep their identity.
	result := svc.Check(context.Background(), models.IdentityUsername, "taken_name")
	require.NotNil(t, result.Available)
	assert.False(t, *result.Available)
}

func TestAvailabilityEmailHeldByPendingRequest(t *testing.T) {
	requests := &mockAvailabilityRequests{claim: &models.AccountRequest{ID: "r1", Status: models.RequestStatusPending}}
	svc := newAvailabilityService(&mockAvailabilityUsers{}, requests)

	result := svc.Check(context.Background(), models.IdentityEmail, "dana@example.edu")
	require.NotNil(t, result.Available)
	assert.False(t, *result.Available)
}

func TestAvailabilityRejectedRequestReleasesIdentity(t *testing.T) {
	// The claim lookup excludes rejected rows, so the mock reports no claim.
	svc := newAvailabilityService(&mockAvailabilityUsers{}, &mockAvailabilityRequests{})

	result := svc.Check(context.Background(), models.IdentityEmail, "dana@example.edu")
	require.NotNil(t, result.Available)
	assert.True(t, *result.Available)
}

func TestAvailabilityFailsClosedOnLookupError(t *testing.T) {
	users := &mockAvailabilityUsers{usernameErr: errors.New("connection refused")}
	svc := newAvailabilityService(users, &mockAvailabilityRequests{})

	result := svc.Check(context.Background(), models.IdentityUsername, "fresh_name")
	require.NotNil(t, result.Available)
	assert.False(t, *result.Available)
}

func TestAvailabilityFailsClosedOnClaimError(t *testing.T) {
	requests := &mockAvailabilityRequests{claimErr: errors.New("connection refused")}
	svc := newAvailabilityService(&mockAvailabilityUsers{}, requests)

	result := svc.Check(context.Background(), models.IdentityEmail, "dana@example.edu")
	require.NotNil(t, result.Available)
	assert.False(t, *result.Available)
}

func TestAvailabilityMalformedUsernameIsIndeterminate(t *testing.T) {
	svc := newAvailabilityService(&mockAvailabilityUsers{}, &mockAvailabilityRequests{})

	result := svc.Check(context.Background(), models.IdentityUsername, "a!")
	assert.Nil(t, result.Available)
	assert.NotEmpty(t, result.Message)
}

func TestAvailabilityMalformedEmailIsIndeterminate(t *testing.T) {
	svc := newAvailabilityService(&mockAvailabilityUsers{}, &mockAvailabilityRequests{})

	result := svc.Check(context.Background(), models.IdentityEmail, "not-an-email")
	assert.Nil(t, result.Available)
}

func TestAvailabilityNormalizesCase(t *testing.T) {
	users := &mockAvailabilityUsers{byUsername: &models.User{ID: "u1"}}
	svc := newAvailabilityService(users, &mockAvailabilityRequests{})

	result := svc.Check(context.Background(), models.IdentityUsername, "Taken_Name")
	require.NotNil(t, result.Available)
	assert.False(t, *result.Available)
}
