// Package redis provides a Redis-backed revocation store. Entries expire via
// Redis key TTLs, which makes it the better fit for multi-instance deployments
// where the SQLite store cannot be shared.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigilauth/sigil/internal/auth/domain"
)

const revocationKeyPrefix = "revoked:"

type Revocations struct {
	client redis.UniversalClient
	leeway time.Duration
}

// NewRevocations wraps a Redis client. Leeway mirrors the verifier's clock
// skew tolerance: entries outlive the exp claim by that much, so a revoked
// token stays revoked for as long as it could still be accepted.
func NewRevocations(client redis.UniversalClient, leeway time.Duration) *Revocations {
	return &Revocations{client: client, leeway: leeway}
}

// Dial connects to a standalone Redis instance and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Add records a revoked token id with a TTL matching the token's remaining
// lifetime. SETNX makes the first writer win, so it reports whether this call
// created the entry.
func (r *Revocations) Add(ctx context.Context, entry domain.RevocationEntry) (bool, error) {
	ttl := time.Until(entry.ExpiresAt.Add(r.leeway))
	if ttl <= 0 {
		// Past exp plus leeway the verifier rejects the token outright.
		// Nothing to store.
		return true, nil
	}

	return r.client.SetNX(ctx, revocationKeyPrefix+entry.TokenID, "1", ttl).Result()
}

func (r *Revocations) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpired is a no-op. Redis evicts revocation entries itself once their
// key TTL lapses.
func (r *Revocations) DeleteExpired(ctx context.Context, before time.Time) error {
	return nil
}
