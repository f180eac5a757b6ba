// Package cache caches billing info reads in Redis. The billing info
// endpoint is hit on nearly every console page load while subscription
// state changes rarely, so a short TTL plus invalidation on mutation
// keeps reads off the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/turnstile/pkg/billing"
	"github.com/platinummonkey/turnstile/pkg/config"
	"github.com/platinummonkey/turnstile/pkg/observability"
)

// BillingInfoCache stores computed billing info per tenant
type BillingInfoCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewBillingInfoCache creates a cache from the redis configuration and
// verifies the connection
func NewBillingInfoCache(cfg config.RedisConfig, metrics *observability.Metrics) (*BillingInfoCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB >= 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &BillingInfoCache{client: client, ttl: cfg.TTL, metrics: metrics}, nil
}

// NewBillingInfoCacheWithClient wraps an existing client; used in tests
func NewBillingInfoCacheWithClient(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *BillingInfoCache {
	return &BillingInfoCache{client: client, ttl: ttl, metrics: metrics}
}

// Client exposes the underlying redis client for health checks
func (c *BillingInfoCache) Client() *redis.Client {
	return c.client
}

// Close closes the underlying redis connection
func (c *BillingInfoCache) Close() error {
	return c.client.Close()
}

func billingInfoKey(tenantID string) string {
	return fmt.Sprintf("billing_info:%s", tenantID)
}

// Get returns the cached billing info for a tenant, or (nil, nil) on a
// miss
func (c *BillingInfoCache) Get(ctx context.Context, tenantID string) (*billing.BillingInfo, error) {
	data, err := c.client.Get(ctx, billingInfoKey(tenantID)).Result()
	if err == redis.Nil {
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached billing info: %w", err)
	}

	info := &billing.BillingInfo{}
	if err := json.Unmarshal([]byte(data), info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached billing info: %w", err)
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return info, nil
}

// Set stores billing info for a tenant with the configured TTL
func (c *BillingInfoCache) Set(ctx context.Context, tenantID string, info *billing.BillingInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal billing info: %w", err)
	}
	if err := c.client.Set(ctx, billingInfoKey(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache billing info: %w", err)
	}
	return nil
}

// Invalidate drops the cached billing info after a subscription or
// quota mutation
func (c *BillingInfoCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, billingInfoKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate billing info: %w", err)
	}
	return nil
}
