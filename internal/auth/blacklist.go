package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// PGBlacklist implements Blacklist using PostgreSQL. The primary key on
// jti makes Add idempotent and race-safe: two concurrent revocations of
// the same token both succeed and leave exactly one row.
type PGBlacklist struct {
	pool *pgxpool.Pool
}

// NewPGBlacklist constructs a PostgreSQL-backed blacklist.
func NewPGBlacklist(pool *pgxpool.Pool) *PGBlacklist {
	return &PGBlacklist{pool: pool}
}

// Add records a revoked jti with the token's own expiry.
func (b *PGBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO token_blacklist (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC(),
	)
	return err
}

// Contains reports whether the jti is revoked.
func (b *PGBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := b.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`, jti).Scan(&revoked)
	return revoked, err
}

// Sweep removes entries whose expiry has passed. Correctness never
// depends on when this runs; an expired token already fails the expiry
// check regardless of the blacklist.
func (b *PGBlacklist) Sweep(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Blacklist = (*PGBlacklist)(nil)

const revokedKeyPrefix = "gatehouse:revoked:"

// CachedBlacklist fronts a Blacklist with a Redis read-through cache so
// the hot Contains path on every verification avoids a database round
// trip. Cache failures degrade to the underlying store, never toward
// letting a revoked token verify.
type CachedBlacklist struct {
	store  Blacklist
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedBlacklist wraps store with a Redis cache. A nil client
// disables the cache; every lookup goes straight to the store.
func NewCachedBlacklist(store Blacklist, client *redis.Client, logger *slog.Logger) *CachedBlacklist {
	return &CachedBlacklist{store: store, client: client, logger: logger, now: time.Now}
}

// Add writes through to the store, then caches the revocation keyed by
// jti with a TTL matching the token's remaining lifetime.
func (b *CachedBlacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := b.store.Add(ctx, jti, expiresAt); err != nil {
		return err
	}
	if b.client == nil {
		return nil
	}
	ttl := expiresAt.Sub(b.now())
	if ttl > 0 {
		if err := b.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil && b.logger != nil {
			b.logger.Warn("blacklist cache set", slog.Any("error", err))
		}
	}
	return nil
}

// Contains answers from the cache when possible and falls through to
// the store on a miss or a cache error.
func (b *CachedBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	if b.client == nil {
		return b.store.Contains(ctx, jti)
	}
	val, err := b.client.Get(ctx, revokedKeyPrefix+jti).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case errors.Is(err, redis.Nil):
	default:
		if b.logger != nil {
			b.logger.Warn("blacklist cache get", slog.Any("error", err))
		}
	}
	return b.store.Contains(ctx, jti)
}

// Sweep delegates to the store; cached entries expire on their own TTL.
func (b *CachedBlacklist) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return b.store.Sweep(ctx, now)
}

var _ Blacklist = (*CachedBlacklist)(nil)
