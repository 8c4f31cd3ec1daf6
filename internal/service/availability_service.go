package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
)

type availabilityUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type availabilityRequestRepository interface {
	FindClaim(ctx context.Context, field models.IdentityKind, value string) (*models.AccountRequest, error)
}

// AvailabilityConfig tunes the availability checker.
type AvailabilityConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// AvailabilityService answers "can this username or email still be claimed".
// An identity is taken when any user holds it (regardless of activation
// state) or when a pending or approved request claims it; a rejected request
// releases the identity for reuse. The checker fails closed: if a lookup
// errors, the identity is reported unavailable rather than risking a
// duplicate claim.
type AvailabilityService struct {
	users    availabilityUserRepository
	requests availabilityRequestRepository
	cache    *CacheService
	logger   *zap.Logger
	config   AvailabilityConfig
}

// NewAvailabilityService constructs an AvailabilityService instance.
func NewAvailabilityService(users availabilityUserRepository, requests availabilityRequestRepository, cache *CacheService, logger *zap.Logger, config AvailabilityConfig) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Second
	}
	return &AvailabilityService{users: users, requests: requests, cache: cache, logger: logger, config: config}
}

// Check reports availability for the identity, consulting the short-lived
// cache first. Cached answers are advisory only: signup re-validates against
// the database, so a stale positive can never create a duplicate.
func (s *AvailabilityService) Check(ctx context.Context, kind models.IdentityKind, value string) models.AvailabilityResult {
	normalized := NormalizeIdentifier(value)
	if result, ok := s.validateInput(kind, normalized); !ok {
		return result
	}

	key := fmt.Sprintf("availability:%s:%s", kind, normalized)
	if s.cacheEnabled() {
		var cached models.AvailabilityResult
		if s.cache.Get(ctx, key, &cached) {
			return cached
		}
	}

	result := s.CheckFresh(ctx, kind, normalized)
	if s.cacheEnabled() && result.Available != nil {
		s.cache.Set(ctx, key, result, s.config.CacheTTL)
	}
	return result
}

// CheckFresh resolves availability directly against the database, bypassing
// the cache. Signup uses this before accepting a submission.
func (s *AvailabilityService) CheckFresh(ctx context.Context, kind models.IdentityKind, value string) models.AvailabilityResult {
	normalized := NormalizeIdentifier(value)
	if result, ok := s.validateInput(kind, normalized); !ok {
		return result
	}

	taken, err := s.lookupUser(ctx, kind, normalized)
	if err != nil {
		s.logger.Warn("availability user lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return models.AvailabilityNo("availability could not be verified, please try again")
	}
	if taken {
		return models.AvailabilityNo(s.takenMessage(kind))
	}

	claim, err := s.requests.FindClaim(ctx, kind, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AvailabilityYes(s.availableMessage(kind))
		}
		s.logger.Warn("availability claim lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return models.AvailabilityNo("availability could not be verified, please try again")
	}
	if claim != nil {
		return models.AvailabilityNo(s.takenMessage(kind))
	}
	return models.AvailabilityYes(s.availableMessage(kind))
}

// InvalidateIdentity drops cached answers for a freshly claimed identity so
// later checks observe the change before the TTL lapses.
func (s *AvailabilityService) InvalidateIdentity(ctx context.Context, username, email string) {
	if !s.cacheEnabled() {
		return
	}
	s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:%s", models.IdentityUsername, NormalizeIdentifier(username)))
	s.cache.Invalidate(ctx, fmt.Sprintf("availability:%s:%s", models.IdentityEmail, NormalizeIdentifier(email)))
}

func (s *AvailabilityService) cacheEnabled() bool {
	return s.config.CacheEnabled && s.cache != nil && s.cache.Enabled()
}

// validateInput screens malformed values before any lookup. The second
// return is false when the caller should return the result immediately.
func (s *AvailabilityService) validateInput(kind models.IdentityKind, value string) (models.AvailabilityResult, bool) {
	switch kind {
	case models.IdentityUsername:
		if err := ValidateUsername(value); err != nil {
			result := models.AvailabilityUnknown()
			result.Message = "username must be 3-20 characters using letters, numbers and underscores"
			return result, false
		}
	case models.IdentityEmail:
		if len(value) > 254 {
			result := models.AvailabilityUnknown()
			result.Message = "email address is too long"
			return result, false
		}
		if _, err := mail.ParseAddress(value); err != nil {
			result := models.AvailabilityUnknown()
			result.Message = "email address is not valid"
			return result, false
		}
	default:
		result := models.AvailabilityUnknown()
		result.Message = "unknown identity kind"
		return result, false
	}
	return models.AvailabilityResult{}, true
}

func (s *AvailabilityService) lookupUser(ctx context.Context, kind models.IdentityKind, value string) (bool, error) {
	var err error
	if kind == models.IdentityEmail {
		_, err = s.users.FindByEmail(ctx, value)
	} else {
		_, err = s.users.FindByUsername(ctx, value)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *AvailabilityService) takenMessage(kind models.IdentityKind) string {
	if kind == models.IdentityEmail {
		return "email is already in use"
	}
	return "username is already taken"
}

func (s *AvailabilityService) availableMessage(kind models.IdentityKind) string {
	if kind == models.IdentityEmail {
		return "email is available"
	}
	return "username is available"
}
