package user

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const adminIDsCacheKey = "buildhub:users:admin_ids"

// CachedAdminDirectory serves administrator ids from Redis, falling back to
// the repository on a miss. A nil client disables caching.
type CachedAdminDirectory struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedAdminDirectory(repo Repository, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedAdminDirectory {
	return &CachedAdminDirectory{repo: repo, client: client, ttl: ttl, log: log}
}

func (d *CachedAdminDirectory) AdminIDs(ctx context.Context) ([]string, error) {
	if d.client != nil {
		raw, err := d.client.Get(ctx, adminIDsCacheKey).Bytes()
		switch {
		case err == nil:
			var ids []string
			if jsonErr := json.Unmarshal(raw, &ids); jsonErr == nil {
				return ids, nil
			}
			d.log.Warn("corrupt admin id cache entry, reloading")
		case !errors.Is(err, redis.Nil):
			// cache outage must not block the lookup
			d.log.Warn("admin id cache read failed", zap.Error(err))
		}
	}

	ids, err := d.repo.ListIDsByRole(ctx, RoleAdmin)
	if err != nil {
		return nil, err
	}

	if d.client != nil {
		if raw, err := json.Marshal(ids); err == nil {
			if err := d.client.Set(ctx, adminIDsCacheKey, raw, d.ttl).Err(); err != nil {
				d.log.Warn("admin id cache write failed", zap.Error(err))
			}
		}
	}
	return ids, nil
}

// Invalidate drops the cached id list.
func (d *CachedAdminDirectory) Invalidate(ctx context.Context) {
	if d.client == nil {
		return
	}
	if err := d.client.Del(ctx, adminIDsCacheKey).Err(); err != nil {
		d.log.Warn("admin id cache invalidate failed", zap.Error(err))
	}
}
