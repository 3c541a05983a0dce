package redis

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MinCodeHub/todak-BE/internal/domain"
	"github.com/MinCodeHub/todak-BE/internal/repository"
)

const keyPrefix = "accounts:authtoken:"

// CachedAuthTokenRepository puts a read-through Redis cache in front of an
// AuthTokenRepository. Keys map to user ids and expire after ttl. Redis
// failures are logged and served from the wrapped repository. A cached entry
// says nothing about whether its user is still active; callers check that.
type CachedAuthTokenRepository struct {
	next   repository.AuthTokenRepository
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedAuthTokenRepository creates a new Redis-cached auth token repository.
func NewCachedAuthTokenRepository(next repository.AuthTokenRepository, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedAuthTokenRepository {
	return &CachedAuthTokenRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// GetOrCreate always goes to the wrapped repository. Keys never change once
// issued, so a cached entry cannot go stale.
func (r *CachedAuthTokenRepository) GetOrCreate(ctx context.Context, userID int64) (*domain.AuthToken, bool, error) {
	return r.next.GetOrCreate(ctx, userID)
}

// GetByKey serves key from Redis when cached and fills the cache on a miss.
// Only positive lookups are cached.
func (r *CachedAuthTokenRepository) GetByKey(ctx context.Context, key string) (*domain.AuthToken, error) {
	userID, err := r.client.Get(ctx, keyPrefix+key).Int64()
	switch {
	case err == nil:
		return &domain.AuthToken{Key: key, UserID: userID}, nil
	case errors.Is(err, redis.Nil):
	default:
		r.logger.WarnContext(ctx, "auth token cache read failed",
			slog.String("error", err.Error()),
		)
	}

	tok, err := r.next.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := r.client.Set(ctx, keyPrefix+key, strconv.FormatInt(tok.UserID, 10), r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "auth token cache write failed",
			slog.String("error", err.Error()),
		)
	}
	return tok, nil
}
