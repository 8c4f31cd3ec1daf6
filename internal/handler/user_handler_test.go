package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/service"
)

type profileRepoStub struct {
	user *models.User
}

func (s *profileRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (s *profileRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.user != nil && s.user.Username == username {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *profileRepoStub) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest, updatedAt time.Time) error {
	return nil
}

func (s *profileRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (s *profileRepoStub) SearchSuggestions(ctx context.Context, term string, limit int) ([]models.UserSuggestion, error) {
	return nil, nil
}

func (s *profileRepoStub) Deactivate(ctx context.Context, id string) error {
	return nil
}

func (s *profileRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func TestGetProfileServesAnonymousRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &profileRepoStub{user: &models.User{
		ID:       "u1",
		Email:    "casey@example.edu",
		Username: "casey_v",
		FullName: "Casey Valdez",
		Role:     models.RoleStudent,
		Active:   true,
	}}
	handler := NewUserHandler(service.NewUserService(repo, nil, nil, nil))

	r := gin.New()
	r.GET("/users/:username", handler.GetProfile)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/users/casey_v", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.PublicProfile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Casey Valdez", envelope.Data.FullName)
	assert.NotContains(t, w.Body.String(), "casey@example.edu")
}
