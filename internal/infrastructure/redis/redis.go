package redis

import (
	"context"
	"errors"
	"time"

	"github.com/baechuer/summons/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultStatusTTL = 10 * time.Minute

type Cache struct {
	Client    *redis.Client
	StatusTTL time.Duration
}

func New(addr, pass string, db int, statusTTL time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr, Password: pass, DB: db,
	})
	return NewWithClient(rdb, statusTTL)
}

func NewWithClient(rdb *redis.Client, statusTTL time.Duration) *Cache {
	if statusTTL <= 0 {
		statusTTL = defaultStatusTTL
	}
	return &Cache{Client: rdb, StatusTTL: statusTTL}
}

func statusKey(eventID uuid.UUID) string { return "event:status:" + eventID.String() }

func (c *Cache) GetEventStatus(ctx context.Context, eventID uuid.UUID) (domain.EventStatus, error) {
	val, err := c.Client.Get(ctx, statusKey(eventID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrCacheMiss
		}
		return "", err
	}
	return domain.EventStatus(val), nil
}

// SetEventStatus keeps cancelled forever; open expires so a missed
// invalidation cannot pin a stale value.
func (c *Cache) SetEventStatus(ctx context.Context, eventID uuid.UUID, status domain.EventStatus) error {
	ttl := c.StatusTTL
	if status == domain.EventCancelled {
		ttl = 0
	}
	return c.Client.Set(ctx, statusKey(eventID), string(status), ttl).Err()
}

// AllowRequest: Simple Fixed Window Rate Limit
func (c *Cache) AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error) {
	key := "ratelimit:" + ip
	count, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, nil // fail open
	}
	if count == 1 {
		_ = c.Client.Expire(ctx, key, window).Err()
	}
	return count <= int64(limit), nil
}

// MarkOnce claims key for ttl. It reports false when the key was already claimed.
func (c *Cache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, "idem:"+key, "1", ttl).Result()
}

// Forget releases a claim so a failed side effect can be retried.
func (c *Cache) Forget(ctx context.Context, key string) error {
	return c.Client.Del(ctx, "idem:"+key).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.Client.Close()
}
