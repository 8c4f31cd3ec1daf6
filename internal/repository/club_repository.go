package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/clubhub-api/internal/models"
)

const clubColumns = `id, name, organizer_id, organizer_username, organizer_email, status, created_at`

// ClubRepository provides read access to clubs. Club rows are written only
// by the approval transaction in RequestRepository.
type ClubRepository struct {
	db *sqlx.DB
}

// NewClubRepository creates a new instance of ClubRepository.
func NewClubRepository(db *sqlx.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

// FindByID returns a club by identifier.
func (r *ClubRepository) FindByID(ctx context.Context, id string) (*models.Club, error) {
	defer observe("clubs.find_by_id", time.Now())
	query := `SELECT ` + clubColumns + ` FROM clubs WHERE id = $1 LIMIT 1`
	var club models.Club
	if err := r.db.GetContext(ctx, &club, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find club by id: %w", err)
	}
	return &club, nil
}

// FindByOrganizer returns the club owned by the given organizer, if any.
func (r *ClubRepository) FindByOrganizer(ctx context.Context, organizerID string) (*models.Club, error) {
	defer observe("clubs.find_by_organizer", time.Now())
	query := `SELECT ` + clubColumns + ` FROM clubs WHERE organizer_id = $1 LIMIT 1`
	var club models.Club
	if err := r.db.GetContext(ctx, &club, query, organizerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find club by organizer: %w", err)
	}
	return &club, nil
}

// List returns clubs matching the filter with total count.
func (r *ClubRepository) List(ctx context.Context, filter models.ClubFilter) ([]models.Club, int, error) {
	defer observe("clubs.list", time.Now())
	baseQuery := `FROM clubs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", clubColumns, baseQuery, pageSize, offset)

	var clubs []models.Club
	if err := r.db.SelectContext(ctx, &clubs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list clubs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count clubs: %w", err)
	}

	return clubs, total, nil
}
