package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindActivationToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "request_id", "token", "expires_at", "used_at", "created_at"}).
		AddRow("t1", "u1", "r1", "opaque-value", now.Add(time.Hour), nil, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, request_id, token, expires_at, used_at, created_at FROM activation_tokens WHERE token = $1 LIMIT 1")).
		WithArgs("opaque-value").
		WillReturnRows(rows)

	token, err := repo.FindActivationToken(context.Background(), "opaque-value")
	require.NoError(t, err)
	assert.Equal(t, "t1", token.ID)
	assert.Equal(t, "u1", token.UserID)
	assert.Nil(t, token.UsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActivationTokenMissReturnsRawNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery("FROM activation_tokens").
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActivationToken(context.Background(), "unknown")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkActivationTokenUsedIsOneShot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	usedAt := time.Now().UTC()
	query := regexp.QuoteMeta("UPDATE activation_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL")

	mock.ExpectExec(query).WithArgs("t1", usedAt).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkActivationTokenUsed(context.Background(), "t1", usedAt))

	mock.ExpectExec(query).WithArgs("t1", usedAt).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkActivationTokenUsed(context.Background(), "t1", usedAt)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredActivationTokens(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	cutoff := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM activation_tokens WHERE used_at IS NULL AND expires_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	purged, err := repo.PurgeExpiredActivationTokens(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
