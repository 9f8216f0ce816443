// Package cache provides the Valkey (Redis-compatible) client, the cache of
// rendered result fragments and the shared rate limit counter.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateKeyPrefix namespaces rate limit windows in Valkey.
const rateKeyPrefix = "hs:rate:"

// ConnectValkey creates a Valkey client and verifies the connection with a
// ping bounded by ctx.
func ConnectValkey(ctx context.Context, host, port, password string) (*redis.Client, error) {
	addr := net.JoinHostPort(host, port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}

	slog.Info("valkey connected", "addr", addr)
	return client, nil
}

// RateCounter counts API requests in Valkey so every instance behind a load
// balancer enforces the same limit. It satisfies middleware.Counter.
type RateCounter struct {
	client *redis.Client
}

// NewRateCounter creates a counter backed by the given Valkey client.
func NewRateCounter(client *redis.Client) *RateCounter {
	return &RateCounter{client: client}
}

// Incr increments the window of key. The expiry is set only when the
// window is created, so the window does not slide with each request.
func (c *RateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := rateKeyPrefix + key
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate counter %s: %w", key, err)
	}
	return incr.Val(), ttl.Val(), nil
}
