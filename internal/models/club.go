package models

import "time"

// ClubStatus tracks whether a club is operating.
type ClubStatus string

const (
	ClubStatusActive   ClubStatus = "active"
	ClubStatusInactive ClubStatus = "inactive"
)

// Club is created exclusively as a side effect of approving an organizer
// request; one club per approved request.
type Club struct {
	ID                string     `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	OrganizerID       string     `db:"organizer_id" json:"organizer_id"`
	OrganizerUsername string     `db:"organizer_username" json:"organizer_username"`
	OrganizerEmail    string     `db:"organizer_email" json:"organizer_email"`
	Status            ClubStatus `db:"status" json:"status"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// ClubFilter narrows club listings.
type ClubFilter struct {
	Status   *ClubStatus
	Search   string
	Page     int
	PageSize int
}
