package models

import "time"

// EventSort enumerates the supported event orderings.
type EventSort string

const (
	EventSortLatest  EventSort = "latest"
	EventSortClosest EventSort = "closest"
	EventSortPopular EventSort = "popular"
)

// Event is read-only catalogue data in this service: events are produced by
// club tooling elsewhere and only listed and displayed here.
type Event struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Category        string     `db:"category" json:"category"`
	Description     string     `db:"description" json:"description"`
	EventDate       time.Time  `db:"event_date" json:"event_date"`
	StartTime       *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime         *time.Time `db:"end_time" json:"end_time,omitempty"`
	Location        string     `db:"location" json:"location"`
	Capacity        int        `db:"capacity" json:"capacity"`
	RegisteredCount int        `db:"registered_count" json:"registered_count"`
	ClubName        string     `db:"club_name" json:"club_name"`
	ImageURL        string     `db:"image_url" json:"image_url"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// SeatsLeft returns the remaining capacity, never negative.
func (e *Event) SeatsLeft() int {
	left := e.Capacity - e.RegisteredCount
	if left < 0 {
		return 0
	}
	return left
}

// EventFilter narrows and orders event listings.
type EventFilter struct {
	Category string
	Sort     EventSort
	Limit    int
}
