package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/clubhub-api/internal/models"
)

func pendingRequestRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "kind", "email", "username", "club_name", "status", "created_at", "approved_at", "approved_by", "user_id", "club_id", "rejected_at", "rejected_by", "rejection_reason"}).
		AddRow("r1", string(models.RequestKindOrganizer), "dana@example.edu", "dana_k", "Robotics Society", string(models.RequestStatusPending), now, nil, nil, nil, nil, nil, nil, nil)
}

func TestCreateRequestSetsPendingDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO account_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.AccountRequest{Kind: models.RequestKindAdmin, Email: "taylor@example.edu", Username: "taylor_m"}
	err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindClaimExcludesRejected(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM account_requests WHERE username = $1 AND status IN ('pending', 'approved')")).
		WithArgs("dana_k").
		WillReturnRows(pendingRequestRow(time.Now()))

	claim, err := repo.FindClaim(context.Background(), models.IdentityUsername, "dana_k")
	require.NoError(t, err)
	assert.Equal(t, "r1", claim.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func approveParams(now time.Time) ApproveParams {
	clubName := "Robotics Society"
	return ApproveParams{
		Request: &models.AccountRequest{
			ID:       "r1",
			Kind:     models.RequestKindOrganizer,
			Email:    "dana@example.edu",
			Username: "dana_k",
			ClubName: &clubName,
			Status:   models.RequestStatusPending,
		},
		ApprovedBy: "admin-1",
		User: &models.User{
			Email:     "dana@example.edu",
			Username:  "dana_k",
			Role:      models.RoleOrganizer,
			Approved:  true,
			Skills:    []string{},
			Interests: []string{},
			Active:    true,
		},
		Club: &models.Club{
			Name:              "Robotics Society",
			OrganizerUsername: "dana_k",
			OrganizerEmail:    "dana@example.edu",
			Status:            models.ClubStatusActive,
		},
		Activation: &models.ActivationToken{
			Token:     "activation-token",
			ExpiresAt: now.Add(48 * time.Hour),
		},
	}
}

func TestApproveCommitsAllRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now().UTC()
	params := approveParams(now)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO clubs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE account_requests SET status = 'approved'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activation_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Approve(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, params.Request.Status)
	require.NotNil(t, params.Request.UserID)
	assert.Equal(t, params.User.ID, *params.Request.UserID)
	require.NotNil(t, params.Request.ClubID)
	assert.Equal(t, params.Club.ID, *params.Request.ClubID)
	assert.Equal(t, params.User.ID, params.Activation.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveSkipsClubForAdminRequests(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	params := approveParams(time.Now().UTC())
	params.Request.Kind = models.RequestKindAdmin
	params.Request.ClubName = nil
	params.Club = nil
	params.User.Role = models.RoleAdmin

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE account_requests SET status = 'approved'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activation_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Approve(context.Background(), params)
	require.NoError(t, err)
	assert.Nil(t, params.Request.ClubID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRollsBackWhenGuardMisses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	params := approveParams(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO clubs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE account_requests SET status = 'approved'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotPending))
	assert.Equal(t, models.RequestStatusPending, params.Request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRollsBackOnUserConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	params := approveParams(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	err := repo.Approve(context.Background(), params)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, "users_email"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectGuardsPendingStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("UPDATE account_requests SET status = 'rejected'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), "r1", "admin-1", "duplicate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotPending))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "users_username_key"}
	assert.True(t, IsUniqueViolation(err, "username"))
	assert.True(t, IsUniqueViolation(err, ""))
	assert.False(t, IsUniqueViolation(err, "email"))
	assert.False(t, IsUniqueViolation(errors.New("other"), ""))
}
