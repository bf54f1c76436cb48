package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/boltshop/domain-gateway/internal/core"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	return &Client{redis.NewClient(opt)}
}

// negativeMarker caches "no binding for this domain" so unknown hosts
// don't hammer the database on every visitor request.
const negativeMarker = "none"

// BindingCache is the router's read-through cache. Entries are immutable
// JSON snapshots replaced atomically; the registry deletes the key
// synchronously with every write for that domain.
type BindingCache struct {
	client      *Client
	ttl         time.Duration
	negativeTTL time.Duration
}

func NewBindingCache(client *Client, ttl time.Duration) *BindingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BindingCache{
		client:      client,
		ttl:         ttl,
		negativeTTL: ttl / 2,
	}
}

func key(domain string) string {
	return "binding:domain:" + domain
}

// Get returns (binding, found, err). found is true for both positive and
// negative cache entries; a negative entry yields a nil binding.
func (c *BindingCache) Get(ctx context.Context, domain string) (*core.DomainBinding, bool, error) {
	data, err := c.client.Client.Get(ctx, key(domain)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if data == negativeMarker {
		return nil, true, nil
	}

	var b core.DomainBinding
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

// Set stores a snapshot for domain. A nil binding stores a short-lived
// negative entry.
func (c *BindingCache) Set(ctx context.Context, domain string, b *core.DomainBinding) error {
	if b == nil {
		return c.client.Client.Set(ctx, key(domain), negativeMarker, c.negativeTTL).Err()
	}

	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Client.Set(ctx, key(domain), data, c.ttl).Err()
}

// Invalidate drops the cached snapshot for domain. Called synchronously
// inside every registry write.
func (c *BindingCache) Invalidate(ctx context.Context, domain string) error {
	return c.client.Client.Del(ctx, key(domain)).Err()
}
