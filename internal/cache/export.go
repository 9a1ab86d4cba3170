// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// export.go caches rendered preset PDFs in Valkey. Entries are keyed by
// preset id and revision (updated_at), so a save makes older entries
// unreachable without an explicit invalidation. Cache errors are logged
// and treated as misses; the cache never fails an export.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// exportKeyPrefix is the Valkey key prefix for cached exports.
	exportKeyPrefix = "export:"

	// DefaultExportTTL is how long a rendered PDF stays cached.
	DefaultExportTTL = 10 * time.Minute
)

// ExportCache stores rendered PDFs in Valkey.
type ExportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExportCache creates a new export cache backed by the given Valkey client.
func NewExportCache(client *redis.Client, ttl time.Duration) *ExportCache {
	if ttl == 0 {
		ttl = DefaultExportTTL
	}
	return &ExportCache{client: client, ttl: ttl}
}

// ExportKey returns the cache key for one revision of a preset.
func ExportKey(presetID uuid.UUID, revision time.Time) string {
	return fmt.Sprintf("%s%s:%d", exportKeyPrefix, presetID, revision.UnixNano())
}

// Get retrieves a cached PDF. The second result is false on a miss.
func (c *ExportCache) Get(ctx context.Context, presetID uuid.UUID, revision time.Time) ([]byte, bool) {
	key := ExportKey(presetID, revision)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("export cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("export cache hit", "key", key)
	return val, true
}

// Set stores a rendered PDF with the configured TTL.
func (c *ExportCache) Set(ctx context.Context, presetID uuid.UUID, revision time.Time, pdf []byte) {
	key := ExportKey(presetID, revision)
	if err := c.client.Set(ctx, key, pdf, c.ttl).Err(); err != nil {
		slog.Warn("export cache set error", "key", key, "error", err)
	}
}

// Invalidate removes every cached revision of a preset.
func (c *ExportCache) Invalidate(ctx context.Context, presetID uuid.UUID) {
	pattern := fmt.Sprintf("%s%s:*", exportKeyPrefix, presetID)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("export cache scan error", "preset_id", presetID, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("export cache delete error", "preset_id", presetID, "error", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("export cache invalidated", "preset_id", presetID)
}
