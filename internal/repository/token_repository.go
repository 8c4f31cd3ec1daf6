package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/clubhub-api/internal/models"
)

// TokenRepository provides access to one-time activation tokens. Tokens are
// inserted by the approval transaction; this repository covers redemption
// and cleanup.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindActivationToken returns an activation token by its opaque value.
func (r *TokenRepository) FindActivationToken(ctx context.Context, token string) (*models.ActivationToken, error) {
	defer observe("activation_tokens.find_activation_token", time.Now())
	const query = `SELECT id, user_id, request_id, token, expires_at, used_at, created_at FROM activation_tokens WHERE token = $1 LIMIT 1`
	var at models.ActivationToken
	if err := r.db.GetContext(ctx, &at, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find activation token: %w", err)
	}
	return &at, nil
}

// MarkActivationTokenUsed consumes a token. The used_at guard makes the
// redemption one-shot: a second redeem attempt matches no row.
func (r *TokenRepository) MarkActivationTokenUsed(ctx context.Context, id string, usedAt time.Time) error {
	defer observe("activation_tokens.mark_activation_token_used", time.Now())
	const query = `UPDATE activation_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return fmt.Errorf("mark activation token used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activation token rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PurgeExpiredActivationTokens removes unused tokens past their expiry.
func (r *TokenRepository) PurgeExpiredActivationTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	defer observe("activation_tokens.purge_expired_activation_tokens", time.Now())
	const query = `DELETE FROM activation_tokens WHERE used_at IS NULL AND expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired activation tokens: %w", err)
	}
	return res.RowsAffected()
}
