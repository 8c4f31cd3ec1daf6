package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campushub/clubhub-api/internal/models"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
)

type clubRepository interface {
	FindByID(ctx context.Context, id string) (*models.Club, error)
	FindByOrganizer(ctx context.Context, organizerID string) (*models.Club, error)
	List(ctx context.Context, filter models.ClubFilter) ([]models.Club, int, error)
}

// ClubService exposes club reads. Clubs are only ever created inside the
// approval transaction, so there is no create path here.
type ClubService struct {
	repo   clubRepository
	logger *zap.Logger
}

// NewClubService constructs a ClubService instance.
func NewClubService(repo clubRepository, logger *zap.Logger) *ClubService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClubService{repo: repo, logger: logger}
}

// Get loads a single club.
func (s *ClubService) Get(ctx context.Context, id string) (*models.Club, error) {
	club, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "club not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load club")
	}
	return club, nil
}

// GetByOrganizer loads the club owned by an organizer account.
func (s *ClubService) GetByOrganizer(ctx context.Context, organizerID string) (*models.Club, error) {
	club, err := s.repo.FindByOrganizer(ctx, organizerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no club for this organizer")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load club")
	}
	return club, nil
}

// List returns clubs matching the filter with pagination metadata.
func (s *ClubService) List(ctx context.Context, filter models.ClubFilter) ([]models.Club, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	clubs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clubs")
	}

	return clubs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
