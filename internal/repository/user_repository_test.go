package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/clubhub-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "role", "approved", "full_name", "bio", "major", "academic_year", "skills", "interests", "active", "last_login", "created_at", "updated_at"}).
		AddRow("u1", "casey@example.edu", "casey_v", "hash", string(models.RoleStudent), true, "Casey V", "", "", "", "{}", "{}", true, now, now, now)
}

func TestQueryObserverReceivesTimings(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	var labels []string
	SetQueryObserver(func(label string, duration time.Duration) {
		labels = append(labels, label)
	})
	defer SetQueryObserver(nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE id = $1 LIMIT 1")).
		WithArgs("u1").
		WillReturnRows(userRows(time.Now()))

	_, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"users.find_by_id"}, labels)
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("casey@example.edu").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByEmail(context.Background(), "casey@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "casey_v", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIdentifierFallsBackToUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("casey_v").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("casey_v").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByIdentifier(context.Background(), "casey_v")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameLowercasesInput(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("casey_v").
		WillReturnRows(userRows(time.Now()))

	_, err := repo.FindByUsername(context.Background(), "Casey_V")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	hash := "hash"
	user := &models.User{Email: "casey@example.edu", Username: "casey_v", PasswordHash: &hash, Role: models.RoleStudent, Active: true}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersWithRoleFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE 1=1 AND role = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.RoleOrganizer).
		WillReturnRows(userRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND role = $1")).
		WithArgs(models.RoleOrganizer).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	role := models.RoleOrganizer
	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSuggestionsDedupesAndCaps(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"username", "full_name", "role", "score"}).
		AddRow("casey_v", "Casey V", string(models.RoleStudent), 2).
		AddRow("casey_v", "Casey V", string(models.RoleStudent), 1).
		AddRow("carla_m", "Carla M", string(models.RoleOrganizer), 1)
	mock.ExpectQuery("SELECT username, full_name, role, score FROM").
		WithArgs("ca%", "ca%", 4).
		WillReturnRows(rows)

	suggestions, err := repo.SearchSuggestions(context.Background(), "ca", 2)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "casey_v", suggestions[0].Username)
	assert.Equal(t, "carla_m", suggestions[1].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchSuggestionsMatchesCapitalizedNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"username", "full_name", "role", "score"}).
		AddRow("cvaldez", "Casey Valdez", string(models.RoleStudent), 1)
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(full_name) LIKE $2")).
		WithArgs("casey%", "casey%", 16).
		WillReturnRows(rows)

	suggestions, err := repo.SearchSuggestions(context.Background(), "Casey", 8)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Casey Valdez", suggestions[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredRefreshTokens(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < $1")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	purged, err := repo.PurgeExpiredRefreshTokens(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionSignup, Resource: "users"}
	err := repo.CreateAuditLog(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
