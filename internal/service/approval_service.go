package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/repository"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type approvalRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.AccountRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.AccountRequest, int, error)
	Approve(ctx context.Context, params repository.ApproveParams) error
	Reject(ctx context.Context, id, rejectedBy, reason string) error
}

type approvalUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// ApprovalConfig tunes the approval flow.
type ApprovalConfig struct {
	ActivationTokenTTL time.Duration
}

// ApprovalService drives the admin review queue. Approval materialises the
// account (and club, for organizer requests) in a single transaction and
// mints a one-time activation token; the new account has no credential until
// its owner redeems that token.
type ApprovalService struct {
	requests  approvalRequestRepository
	users     approvalUserRepository
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ApprovalConfig
}

// NewApprovalService constructs an ApprovalService instance.
func NewApprovalService(requests approvalRequestRepository, users approvalUserRepository, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config ApprovalConfig) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ActivationTokenTTL <= 0 {
		config.ActivationTokenTTL = 7 * 24 * time.Hour
	}
	return &ApprovalService{requests: requests, users: users, audit: audit, metrics: metrics, validator: validate, logger: logger, config: config}
}

// ListRequests returns account requests matching the filter, newest first.
func (s *ApprovalService) ListRequests(ctx context.Context, filter models.RequestFilter) ([]models.AccountRequest, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list account requests")
	}

	return requests, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetRequest loads a single account request.
func (s *ApprovalService) GetRequest(ctx context.Context, id string) (*models.AccountRequest, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account request")
	}
	return request, nil
}

// Approve resolves a pending request into a real account. The request row,
// user, club and activation token are written in one transaction guarded on
// the pending status, so replayed or concurrent approvals resolve to
// ALREADY_RESOLVED instead of duplicating accounts.
func (s *ApprovalService) Approve(ctx context.Context, id, approvedBy string) (*models.ApprovalResult, error) {
	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Resolved() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "request has already been resolved")
	}

	// The pending request holds its identities, but an older approved
	// request or a direct student signup may have claimed them since.
	if err := s.checkNoAccount(ctx, request); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Email:     request.Email,
		Username:  request.Username,
		Role:      models.UserRole(request.Kind),
		Approved:  true,
		Skills:    []string{},
		Interests: []string{},
		Active:    true,
	}

	var club *models.Club
	if request.Kind == models.RequestKindOrganizer {
		if request.ClubName == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "organizer request is missing its club name")
		}
		club = &models.Club{
			Name:              *request.ClubName,
			OrganizerUsername: user.Username,
			OrganizerEmail:    user.Email,
			Status:            models.ClubStatusActive,
		}
	}

	tokenValue, err := generateOpaqueToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint activation token")
	}
	activation := &models.ActivationToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		RequestID: request.ID,
		Token:     tokenValue,
		ExpiresAt: time.Now().UTC().Add(s.config.ActivationTokenTTL),
	}

	err = s.requests.Approve(ctx, repository.ApproveParams{
		Request:    request,
		ApprovedBy: approvedBy,
		User:       user,
		Club:       club,
		Activation: activation,
	})
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "request has already been resolved")
		}
		if repository.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrAccountExists, "an account already holds this email or username")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}

	s.recordAudit(approvedBy, models.AuditActionRequestApprove, request.ID, map[string]interface{}{
		"kind":    string(request.Kind),
		"user_id": user.ID,
	})

	s.metrics.RecordRequestResolution(true)
	s.logger.Info("account request approved",
		zap.String("request_id", request.ID),
		zap.String("kind", string(request.Kind)),
		zap.String("user_id", user.ID))

	result := &models.ApprovalResult{
		RequestID:         request.ID,
		UserID:            user.ID,
		ActivationToken:   activation.Token,
		ActivationExpires: activation.ExpiresAt,
	}
	if club != nil {
		result.ClubID = &club.ID
	}
	return result, nil
}

// Reject resolves a pending request as rejected, releasing its email and
// username for future signups. The request row is kept for the audit trail.
func (s *ApprovalService) Reject(ctx context.Context, id, rejectedBy string, req models.RejectRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	request, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if request.Resolved() {
		return appErrors.Clone(appErrors.ErrAlreadyResolved, "request has already been resolved")
	}

	if err := s.requests.Reject(ctx, id, rejectedBy, req.Reason); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return appErrors.Clone(appErrors.ErrAlreadyResolved, "request has already been resolved")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}

	s.recordAudit(rejectedBy, models.AuditActionRequestReject, request.ID, map[string]interface{}{
		"kind":   string(request.Kind),
		"reason": req.Reason,
	})

	s.metrics.RecordRequestResolution(false)
	s.logger.Info("account request rejected",
		zap.String("request_id", request.ID),
		zap.String("kind", string(request.Kind)))
	return nil
}

func (s *ApprovalService) checkNoAccount(ctx context.Context, request *models.AccountRequest) error {
	if _, err := s.users.FindByEmail(ctx, request.Email); err == nil {
		return appErrors.Clone(appErrors.ErrAccountExists, "an account already holds this email")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	if _, err := s.users.FindByUsername(ctx, request.Username); err == nil {
		return appErrors.Clone(appErrors.ErrAccountExists, "an account already holds this username")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	return nil
}

func (s *ApprovalService) recordAudit(adminID, action, requestID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(values)
	id := requestID
	s.audit.Record(&models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   "account_requests",
		ResourceID: &id,
		NewValues:  body,
	})
}

// generateOpaqueToken returns a URL-safe random token for one-time links.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
