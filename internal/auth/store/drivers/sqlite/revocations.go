package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sigilauth/sigil/internal/auth/domain"
)

type revocationsRepo struct {
	db *sql.DB
}

// Add records a revoked token id. It reports whether this call created the
// entry, which lets callers distinguish a fresh revocation from a replay of
// an already revoked token.
func (r *revocationsRepo) Add(ctx context.Context, entry domain.RevocationEntry) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at, revoked_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(token_id) DO NOTHING`,
		entry.TokenID, entry.ExpiresAt, entry.RevokedAt)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *revocationsRepo) Contains(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE token_id = ?`, tokenID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteExpired purges entries whose backing tokens expired before the
// cutoff. Callers pass now minus the verifier leeway so an entry is never
// dropped while its token could still be accepted.
func (r *revocationsRepo) DeleteExpired(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, before.UTC())
	return err
}
