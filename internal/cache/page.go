// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// page.go provides a Valkey-backed cache of rendered workspace fragments.
// A fragment depends only on the dataset version and the visitor's filter
// state, so identical states share one entry across visitors.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"hslookup/internal/lookup"
)

const (
	// pageKeyPrefix is the Valkey key prefix for cached fragments.
	pageKeyPrefix = "hs:page:"

	// DefaultPageTTL is how long a rendered fragment stays cached.
	DefaultPageTTL = 5 * time.Minute
)

// PageCache manages fragment HTML caching in Valkey.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a new page cache backed by the given Valkey client.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl == 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// Get retrieves cached HTML for a key. Errors are logged and reported as
// a miss.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("page cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("page cache hit", "key", key)
	return val, true
}

// Set stores rendered HTML for a key with the configured TTL.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set error", "key", key, "error", err)
	}
}

// InvalidateAll unlinks every cached fragment and returns how many were
// removed. Keys are collected with SCAN and unlinked in batches.
func (pc *PageCache) InvalidateAll(ctx context.Context) (int, error) {
	const batch = 100
	var (
		keys    []string
		removed int
	)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		n, err := pc.client.Unlink(ctx, keys...).Result()
		removed += int(n)
		keys = keys[:0]
		return err
	}

	iter := pc.client.Scan(ctx, 0, pageKeyPrefix+"*", batch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == batch {
			if err := flush(); err != nil {
				return removed, fmt.Errorf("unlink fragments: %w", err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan fragments: %w", err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("unlink fragments: %w", err)
	}
	return removed, nil
}

// ResultsKey returns the cache key for the workspace fragment of state
// rendered against dataset version.
func ResultsKey(version string, state lookup.State) string {
	payload, _ := json.Marshal(state) // State holds only strings and ints
	sum := blake2b.Sum256(payload)
	return "results:" + version + ":" + hex.EncodeToString(sum[:16])
}
