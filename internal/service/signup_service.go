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
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/repository"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type signupUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type signupRequestRepository interface {
	FindClaim(ctx context.Context, field models.IdentityKind, value string) (*models.AccountRequest, error)
	Create(ctx context.Context, req *models.AccountRequest) error
}

type auditRecorder interface {
	Record(entry *models.AuditLog)
}

type identityCacheInvalidator interface {
	InvalidateIdentity(ctx context.Context, username, email string)
}

// SignupService handles signup intake. Students are registered immediately
// with the password they chose; organizer and admin signups never carry a
// password and become pending account requests for admin review.
type SignupService struct {
	users     signupUserRepository
	requests  signupRequestRepository
	audit     auditRecorder
	metrics   *MetricsService
	cache     identityCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSignupService constructs a SignupService instance. cache may be nil
// when availability caching is disabled.
func NewSignupService(users signupUserRepository, requests signupRequestRepository, audit auditRecorder, metrics *MetricsService, cache identityCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SignupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SignupService{users: users, requests: requests, audit: audit, metrics: metrics, cache: cache, validator: validate, logger: logger}
}

// Signup validates and routes a signup submission by role. All availability
// answers the client saw earlier are advisory; this path re-checks every
// identity against the database and relies on unique indexes to resolve
// races between concurrent submissions.
func (s *SignupService) Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	req.Email = NormalizeIdentifier(req.Email)
	req.Username = NormalizeIdentifier(req.Username)
	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}

	switch req.Role {
	case models.RoleStudent:
		return s.registerStudent(ctx, req)
	case models.RoleOrganizer, models.RoleAdmin:
		return s.createRequest(ctx, req)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported role")
	}
}

func (s *SignupService) registerStudent(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.checkIdentities(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	hashValue := string(hash)
	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: &hashValue,
		Role:         models.RoleStudent,
		Approved:     true,
		Skills:       []string{},
		Interests:    []string{},
		Active:       true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent signup may have won the race after our checks; the
		// unique indexes are the final arbiter.
		if repository.IsUniqueViolation(err, "username") {
			return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "username is already taken")
		}
		if repository.IsUniqueViolation(err, "email") {
			return nil, appErrors.Clone(appErrors.ErrEmailRegistered, "email is already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.recordAudit(&user.ID, models.AuditActionSignup, "users", user.ID, map[string]interface{}{
		"role": string(models.RoleStudent),
	}, req)

	s.invalidateCachedAvailability(ctx, req.Username, req.Email)
	s.metrics.RecordSignup(models.RoleStudent)
	s.logger.Info("student registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return &models.SignupResponse{Status: "registered", UserID: user.ID}, nil
}

func (s *SignupService) createRequest(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	// Credentials are chosen at activation time; a password in the payload
	// means the client is out of step with the flow.
	if req.Password != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password is set during activation, not at signup")
	}

	var clubName *string
	if req.Role == models.RoleOrganizer {
		if err := ValidateClubName(req.ClubName); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(req.ClubName)
		clubName = &trimmed
	} else if req.ClubName != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "club name is only accepted for organizer signups")
	}

	if err := s.checkIdentities(ctx, req.Email, req.Username); err != nil {
		return nil, err
	}

	request := &models.AccountRequest{
		Kind:     models.RequestKind(req.Role),
		Email:    req.Email,
		Username: req.Username,
		ClubName: clubName,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		if repository.IsUniqueViolation(err, "username") {
			return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "username is already taken")
		}
		if repository.IsUniqueViolation(err, "email") {
			return nil, appErrors.Clone(appErrors.ErrEmailRequested, "a request for this email is already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account request")
	}

	s.recordAudit(nil, models.AuditActionRequestCreate, "account_requests", request.ID, map[string]interface{}{
		"kind":  string(request.Kind),
		"email": request.Email,
	}, req)

	s.invalidateCachedAvailability(ctx, req.Username, req.Email)
	s.metrics.RecordSignup(req.Role)
	s.logger.Info("account request queued",
		zap.String("request_id", request.ID),
		zap.String("kind", string(request.Kind)))
	return &models.SignupResponse{Status: "pending", RequestID: request.ID, Kind: string(request.Kind)}, nil
}

// checkIdentities re-validates email and username against users and
// unresolved requests. Rejected requests release their identities, so only
// pending and approved rows count as claims.
func (s *SignupService) checkIdentities(ctx context.Context, email, username string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return appErrors.Clone(appErrors.ErrEmailRegistered, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return appErrors.Clone(appErrors.ErrUsernameTaken, "username is already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	if _, err := s.requests.FindClaim(ctx, models.IdentityEmail, email); err == nil {
		return appErrors.Clone(appErrors.ErrEmailRequested, "a request for this email is already pending")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email claims")
	}

	if _, err := s.requests.FindClaim(ctx, models.IdentityUsername, username); err == nil {
		return appErrors.Clone(appErrors.ErrUsernameTaken, "username is already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username claims")
	}

	return nil
}

func (s *SignupService) invalidateCachedAvailability(ctx context.Context, username, email string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateIdentity(ctx, username, email)
}

func (s *SignupService) recordAudit(userID *string, action, resource, resourceID string, values map[string]interface{}, req models.SignupRequest) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(values)
	id := resourceID
	s.audit.Record(&models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &id,
		NewValues:  body,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
		CreatedAt:  time.Now().UTC(),
	})
}
