package models

import "time"

// RequestKind distinguishes the two account-request variants.
type RequestKind string

const (
	RequestKindOrganizer RequestKind = "organizer"
	RequestKindAdmin     RequestKind = "admin"
)

// RequestStatus tracks the lifecycle of an account request. Transitions are
// one-directional: pending may move to approved or rejected, both terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// AccountRequest is a durable signup request awaiting admin review. Requests
// are never deleted; resolved rows remain as audit records. ClubName and
// ClubID are only populated for the organizer kind.
type AccountRequest struct {
	ID              string        `db:"id" json:"id"`
	Kind            RequestKind   `db:"kind" json:"kind"`
	Email           string        `db:"email" json:"email"`
	Username        string        `db:"username" json:"username"`
	ClubName        *string       `db:"club_name" json:"club_name,omitempty"`
	Status          RequestStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	ApprovedAt      *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy      *string       `db:"approved_by" json:"approved_by,omitempty"`
	UserID          *string       `db:"user_id" json:"user_id,omitempty"`
	ClubID          *string       `db:"club_id" json:"club_id,omitempty"`
	RejectedAt      *time.Time    `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectedBy      *string       `db:"rejected_by" json:"rejected_by,omitempty"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

// Resolved reports whether the request has reached a terminal status.
func (r *AccountRequest) Resolved() bool {
	return r != nil && r.Status != RequestStatusPending
}

// RequestFilter narrows account-request listings.
type RequestFilter struct {
	Kind     *RequestKind
	Status   *RequestStatus
	Page     int
	PageSize int
}

// SignupRequest is the signup intake payload. Password is required for the
// student role only; organizer and admin signups set their password later
// through the activation link issued on approval.
type SignupRequest struct {
	Email     string   `json:"email" validate:"required,email,max=254"`
	Username  string   `json:"username" validate:"required"`
	Password  string   `json:"password"`
	Role      UserRole `json:"role" validate:"required,oneof=student organizer admin"`
	ClubName  string   `json:"club_name"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// SignupResponse reports the outcome of a signup submission.
type SignupResponse struct {
	// Status is "registered" for direct student signups and "pending" when
	// an account request was queued for admin review.
	Status    string `json:"status"`
	UserID    string `json:"user_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// RejectRequest carries the optional rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ApprovalResult reports the records created by approving a request. The
// activation token is returned once here so the reviewing admin can deliver
// the activation link; it is never readable again.
type ApprovalResult struct {
	RequestID         string    `json:"request_id"`
	UserID            string    `json:"user_id"`
	ClubID            *string   `json:"club_id,omitempty"`
	ActivationToken   string    `json:"activation_token"`
	ActivationExpires time.Time `json:"activation_expires"`
}
