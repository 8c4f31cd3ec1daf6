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

	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/repository"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type mockApprovalRequests struct {
	request    *models.AccountRequest
	approveErr error
	rejectErr  error
	approved   *repository.ApproveParams
	rejected   bool
}

func (m *mockApprovalRequests) FindByID(ctx context.Context, id string) (*models.AccountRequest, error) {
	if m.request == nil || m.request.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.request, nil
}

func (m *mockApprovalRequests) List(ctx context.Context, filter models.RequestFilter) ([]models.AccountRequest, int, error) {
	if m.request == nil {
		return []models.AccountRequest{}, 0, nil
	}
	return []models.AccountRequest{*m.request}, 1, nil
}

func (m *mockApprovalRequests) Approve(ctx context.Context, params repository.ApproveParams) error {
	if m.approveErr != nil {
		return m.approveErr
	}
	m.approved = &params
	now := time.Now().UTC()
	params.Request.Status = models.RequestStatusApproved
	params.Request.ApprovedAt = &now
	params.Request.ApprovedBy = &params.ApprovedBy
	return nil
}

func (m *mockApprovalRequests) Reject(ctx context.Context, id, rejectedBy, reason string) error {
	if m.rejectErr != nil {
		return m.rejectErr
	}
	m.rejected = true
	m.request.Status = models.RequestStatusRejected
	return nil
}

type mockApprovalUsers struct {
	byEmail    *models.User
	byUsername *models.User
}

func (m *mockApprovalUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.byEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.byEmail, nil
}

func (m *mockApprovalUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.byUsername == nil {
		return nil, sql.ErrNoRows
	}
	return m.byUsername, nil
}

func pendingOrganizerRequest() *models.AccountRequest {
	clubName := "Robotics Society"
	return &models.AccountRequest{
		ID:       "r1",
		Kind:     models.RequestKindOrganizer,
		Email:    "dana@example.edu",
		Username: "dana_k",
		ClubName: &clubName,
		Status:   models.RequestStatusPending,
	}
}

func newApprovalService(requests *mockApprovalRequests, users *mockApprovalUsers) (*ApprovalService, *captureRecorder) {
	recorder := &captureRecorder{}
	svc := NewApprovalService(requests, users, recorder, nil, validator.New(), zap.NewNop(), ApprovalConfig{
		ActivationTokenTTL: 48 * time.Hour,
	})
	return svc, recorder
}

func TestApproveOrganizerCreatesUserClubAndToken(t *testing.T) {
	requests := &mockApprovalRequests{request: pendingOrganizerRequest()}
	svc, recorder := newApprovalService(requests, &mockApprovalUsers{})

	result, err := svc.Approve(context.Background(), "r1", "admin-1")
	require.NoError(t, err)

	require.NotNil(t, requests.approved)
	user := requests.approved.User
	assert.Equal(t, "dana@example.edu", user.Email)
	assert.Equal(t, models.RoleOrganizer, user.Role)
	assert.True(t, user.Approved)
	assert.Nil(t, user.PasswordHash)

	require.NotNil(t, requests.approved.Club)
	assert.Equal(t, "Robotics Society", requests.approved.Club.Name)
	assert.Equal(t, "dana_k", requests.approved.Club.OrganizerUsername)

	activation := requests.approved.Activation
	require.NotNil(t, activation)
	assert.Equal(t, user.ID, activation.UserID)
	assert.Equal(t, "r1", activation.RequestID)
	assert.NotEmpty(t, activation.Token)
	assert.Equal(t, activation.Token, result.ActivationToken)
	assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), activation.ExpiresAt, time.Minute)

	assert.Len(t, recorder.entries, 1)
	assert.Equal(t, models.AuditActionRequestApprove, recorder.entries[0].Action)
}

func TestApproveAdminSkipsClub(t *testing.T) {
	request := &models.AccountRequest{
		ID:       "r2",
		Kind:     models.RequestKindAdmin,
		Email:    "taylor@example.edu",
		Username: "taylor_m",
		Status:   models.RequestStatusPending,
	}
	requests := &mockApprovalRequests{request: request}
	svc, _ := newApprovalService(requests, &mockApprovalUsers{})

	result, err := svc.Approve(context.Background(), "r2", "admin-1")
	require.NoError(t, err)
	assert.Nil(t, requests.approved.Club)
	assert.Nil(t, result.ClubID)
	assert.Equal(t, models.RoleAdmin, requests.approved.User.Role)
}

func TestApproveAlreadyResolvedRequest(t *testing.T) {
	request := pendingOrganizerRequest()
	request.Status = models.RequestStatusApproved
	svc, _ := newApprovalService(&mockApprovalRequests{request: request}, &mockApprovalUsers{})

	_, err := svc.Approve(context.Background(), "r1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyResolved.Code, appErrors.FromError(err).Code)
}

func TestApproveLosesConcurrentResolution(t *testing.T) {
	requests := &mockApprovalRequests{request: pendingOrganizerRequest(), approveErr: repository.ErrRequestNotPending}
	svc, _ := newApprovalService(requests, &mockApprovalUsers{})

	_, err := svc.Approve(context.Background(), "r1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyResolved.Code, appErrors.FromError(err).Code)
}

func TestApproveWhenAccountAlreadyExists(t *testing.T) {
	users := &mockApprovalUsers{byEmail: &models.User{ID: "u9", Email: "dana@example.edu"}}
	svc, _ := newApprovalService(&mockApprovalRequests{request: pendingOrganizerRequest()}, users)

	_, err := svc.Approve(context.Background(), "r1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountExists.Code, appErrors.FromError(err).Code)
}

func TestApproveMissingRequest(t *testing.T) {
	svc, _ := newApprovalService(&mockApprovalRequests{}, &mockApprovalUsers{})

	_, err := svc.Approve(context.Background(), "nope", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRejectResolvesRequest(t *testing.T) {
	requests := &mockApprovalRequests{request: pendingOrganizerRequest()}
	svc, recorder := newApprovalService(requests, &mockApprovalUsers{})

	err := svc.Reject(context.Background(), "r1", "admin-1", models.RejectRequest{Reason: "club already exists"})
	require.NoError(t, err)
	assert.True(t, requests.rejected)
	assert.Len(t, recorder.entries, 1)
	assert.Equal(t, models.AuditActionRequestReject, recorder.entries[0].Action)
}

func TestRejectAlreadyResolvedRequest(t *testing.T) {
	request := pendingOrganizerRequest()
	request.Status = models.RequestStatusRejected
	svc, _ := newApprovalService(&mockApprovalRequests{request: request}, &mockApprovalUsers{})

	err := svc.Reject(context.Background(), "r1", "admin-1", models.RejectRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyResolved.Code, appErrors.FromError(err).Code)
}
