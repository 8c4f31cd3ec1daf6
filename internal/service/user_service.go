package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest, updatedAt time.Time) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	SearchSuggestions(ctx context.Context, term string, limit int) ([]models.UserSuggestion, error)
	Deactivate(ctx context.Context, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// UserService exposes account and profile use cases.
type UserService struct {
	repo      userRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// GetByID loads a full user record.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// GetProfile returns the public profile for a username.
func (s *UserService) GetProfile(ctx context.Context, username string) (*models.PublicProfile, error) {
	user, err := s.repo.FindByUsername(ctx, NormalizeIdentifier(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	profile := user.Public()
	return &profile, nil
}

// UpdateProfile applies owner-editable profile fields. Role, approval and
// activation state are never touched here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, req, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if s.audit != nil {
		body, _ := json.Marshal(req)
		old, _ := json.Marshal(user.Public())
		id := userID
		s.audit.Record(&models.AuditLog{
			UserID:     &id,
			Action:     models.AuditActionProfileUpdate,
			Resource:   "users",
			ResourceID: &id,
			OldValues:  old,
			NewValues:  body,
		})
	}

	return s.GetByID(ctx, userID)
}

// List returns users matching the filter with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// SearchSuggestions returns people-picker hits for a search term. Username
// prefix matches rank above full-name matches; results are capped small
// because the caller renders them as type-ahead suggestions.
func (s *UserService) SearchSuggestions(ctx context.Context, term string, limit int) ([]models.UserSuggestion, error) {
	term = strings.TrimSpace(term)
	if len(term) < 2 {
		return []models.UserSuggestion{}, nil
	}
	if limit <= 0 || limit > 8 {
		limit = 8
	}

	suggestions, err := s.repo.SearchSuggestions(ctx, strings.ToLower(term), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search users")
	}
	return suggestions, nil
}

// Deactivate disables an account and revokes its sessions.
func (s *UserService) Deactivate(ctx context.Context, id, adminID string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin && user.ID != adminID {
		return appErrors.Clone(appErrors.ErrForbidden, "admin accounts cannot be deactivated by other admins")
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions for deactivated user", zap.Error(err))
	}

	s.logger.Info("user deactivated", zap.String("user_id", id), zap.String("by", adminID))
	return nil
}
