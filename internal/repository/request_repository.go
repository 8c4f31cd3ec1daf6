package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushub/clubhub-api/internal/models"
)

const requestColumns = `id, kind, email, username, club_name, status, created_at, approved_at, approved_by, user_id, club_id, rejected_at, rejected_by, rejection_reason`

// ErrRequestNotPending signals that the pending-status guard matched no row:
// the request was resolved concurrently (or never existed).
var ErrRequestNotPending = errors.New("request is not pending")

// IsUniqueViolation reports whether the error is a Postgres unique-constraint
// violation, optionally narrowed to a constraint name substring. The unique
// indexes are the sole serialization point between concurrent signups.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || strings.Contains(pqErr.Constraint, constraint)
}

// RequestRepository provides database access for account requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new instance of RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new pending account request. The partial unique index on
// unresolved requests rejects a second pending request for the same email.
func (r *RequestRepository) Create(ctx context.Context, req *models.AccountRequest) error {
	defer observe("account_requests.create", time.Now())
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}

	const query = `INSERT INTO account_requests (id, kind, email, username, club_name, status, created_at) VALUES (:id, :kind, :email, :username, :club_name, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create account request: %w", err)
	}
	return nil
}

// FindByID returns a single account request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.AccountRequest, error) {
	defer observe("account_requests.find_by_id", time.Now())
	query := `SELECT ` + requestColumns + ` FROM account_requests WHERE id = $1 LIMIT 1`
	var req models.AccountRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account request by id: %w", err)
	}
	return &req, nil
}

// FindClaim returns the most relevant request holding the given identity
// attribute: pending and approved rows claim the identity regardless of
// kind, rejected rows do not and are excluded here.
func (r *RequestRepository) FindClaim(ctx context.Context, field models.IdentityKind, value string) (*models.AccountRequest, error) {
	defer observe("account_requests.find_claim", time.Now())
	column := "username"
	if field == models.IdentityEmail {
		column = "email"
	}
	query := fmt.Sprintf(`SELECT %s FROM account_requests WHERE %s = $1 AND status IN ('pending', 'approved') ORDER BY created_at DESC LIMIT 1`, requestColumns, column)
	var req models.AccountRequest
	if err := r.db.GetContext(ctx, &req, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find request claim: %w", err)
	}
	return &req, nil
}

// List returns account requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.AccountRequest, int, error) {
	defer observe("account_requests.list", time.Now())
	baseQuery := `FROM account_requests WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, *filter.Kind)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", requestColumns, baseQuery, pageSize, offset)

	var requests []models.AccountRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list account requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count account requests: %w", err)
	}

	return requests, total, nil
}

// ApproveParams bundles the rows created when a request is approved.
type ApproveParams struct {
	Request    *models.AccountRequest
	ApprovedBy string
	User       *models.User
	Club       *models.Club
	Activation *models.ActivationToken
}

// Approve materialises an approval in a single transaction: insert the user,
// insert the club for organizer requests, flip the request to approved under
// a pending-status guard, and store the activation token. A guard miss rolls
// everything back and returns ErrRequestNotPending, so a concurrent second
// approval can never create duplicate accounts.
func (r *RequestRepository) Approve(ctx context.Context, params ApproveParams) error {
	defer observe("account_requests.approve", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()

	user := params.User
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	const userInsert = `INSERT INTO users (id, email, username, password_hash, role, approved, full_name, bio, major, academic_year, skills, interests, active, created_at, updated_at) VALUES (:id, :email, :username, :password_hash, :role, :approved, :full_name, :bio, :major, :academic_year, :skills, :interests, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userInsert, user); err != nil {
		return fmt.Errorf("approve: create user: %w", err)
	}

	var clubID *string
	if params.Club != nil {
		club := params.Club
		if club.ID == "" {
			club.ID = uuid.NewString()
		}
		club.OrganizerID = user.ID
		club.CreatedAt = now
		const clubInsert = `INSERT INTO clubs (id, name, organizer_id, organizer_username, organizer_email, status, created_at) VALUES (:id, :name, :organizer_id, :organizer_username, :organizer_email, :status, :created_at)`
		if _, err := tx.NamedExecContext(ctx, clubInsert, club); err != nil {
			return fmt.Errorf("approve: create club: %w", err)
		}
		clubID = &club.ID
	}

	const requestUpdate = `UPDATE account_requests SET status = 'approved', approved_at = $2, approved_by = $3, user_id = $4, club_id = $5 WHERE id = $1 AND status = 'pending'`
	res, err := tx.ExecContext(ctx, requestUpdate, params.Request.ID, now, params.ApprovedBy, user.ID, clubID)
	if err != nil {
		return fmt.Errorf("approve: update request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRequestNotPending
	}

	token := params.Activation
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.UserID = user.ID
	token.RequestID = params.Request.ID
	token.CreatedAt = now
	const tokenInsert = `INSERT INTO activation_tokens (id, user_id, request_id, token, expires_at, created_at) VALUES (:id, :user_id, :request_id, :token, :expires_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, tokenInsert, token); err != nil {
		return fmt.Errorf("approve: create activation token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}

	params.Request.Status = models.RequestStatusApproved
	params.Request.ApprovedAt = &now
	params.Request.ApprovedBy = &params.ApprovedBy
	params.Request.UserID = &user.ID
	params.Request.ClubID = clubID
	return nil
}

// Reject flips a pending request to rejected, recording the resolver and the
// optional reason. The pending guard keeps the transition one-directional.
func (r *RequestRepository) Reject(ctx context.Context, id, rejectedBy, reason string) error {
	defer observe("account_requests.reject", time.Now())
	const query = `UPDATE account_requests SET status = 'rejected', rejected_at = $2, rejected_by = $3, rejection_reason = $4 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC(), rejectedBy, reason)
	if err != nil {
		return fmt.Errorf("reject account request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRequestNotPending
	}
	return nil
}
