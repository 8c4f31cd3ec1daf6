package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/clubhub-api/internal/models"
)

const eventColumns = `id, title, category, description, event_date, start_time, end_time, location, capacity, registered_count, club_name, image_url, created_at`

// EventRepository provides read-only access to the event catalogue.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByID returns an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	defer observe("events.find_by_id", time.Now())
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// List returns events filtered by category and ordered per the sort key.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	defer observe("events.list", time.Now())
	baseQuery := `FROM events WHERE 1=1`
	var args []interface{}

	if filter.Category != "" && filter.Category != "all" {
		args = append(args, filter.Category)
		baseQuery += fmt.Sprintf(" AND category = $%d", len(args))
	}

	orderBy := "created_at DESC"
	switch filter.Sort {
	case models.EventSortClosest:
		orderBy = "event_date ASC"
	case models.EventSortPopular:
		orderBy = "registered_count DESC"
	case models.EventSortLatest, "":
		orderBy = "created_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d", eventColumns, baseQuery, orderBy, limit)

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
