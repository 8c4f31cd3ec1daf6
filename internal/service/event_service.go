package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type eventRepository interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

// EventConfig tunes the event catalogue reads.
type EventConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	DefaultLimit int
}

// EventService serves the read-only event catalogue. Listings are cached
// briefly per category/sort/limit combination; events change rarely and the
// discover page hits this on every load.
type EventService struct {
	repo   eventRepository
	cache  *CacheService
	logger *zap.Logger
	config EventConfig
}

// NewEventService constructs an EventService instance.
func NewEventService(repo eventRepository, cache *CacheService, logger *zap.Logger, config EventConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 50
	}
	return &EventService{repo: repo, cache: cache, logger: logger, config: config}
}

// Get loads a single event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// List returns events for the filter. The second return reports whether the
// answer came from cache.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, bool, error) {
	if filter.Sort == "" {
		filter.Sort = models.EventSortLatest
	}
	switch filter.Sort {
	case models.EventSortLatest, models.EventSortClosest, models.EventSortPopular:
	default:
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "sort must be latest, closest or popular")
	}
	if filter.Limit <= 0 {
		filter.Limit = s.config.DefaultLimit
	}

	key := fmt.Sprintf("events:%s:%s:%d", filter.Category, filter.Sort, filter.Limit)
	if s.cacheEnabled() {
		var cached []models.Event
		if s.cache.Get(ctx, key, &cached) {
			return cached, true, nil
		}
	}

	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	if s.cacheEnabled() {
		s.cache.Set(ctx, key, events, s.config.CacheTTL)
	}
	return events, false, nil
}

func (s *EventService) cacheEnabled() bool {
	return s.config.CacheEnabled && s.cache != nil && s.cache.Enabled()
}
