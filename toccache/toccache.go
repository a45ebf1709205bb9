// Package toccache caches a parsed Trailer/TOC in Redis, keyed by a
// fingerprint of the backing archive. reader.OpenWithTOCCache still runs
// the full Open, trailer decode and checksum verification included,
// before it consults the cache; a cache hit replaces the Trailer Open
// decoded, it does not skip decoding it.
package toccache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kenneth/apack"
	"github.com/kenneth/apack/apackerr"
)

const keyPrefix = "apack:toc:"

// Cache wraps a Redis client for Trailer lookups.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Cache storing entries for ttl before Redis expires them.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Fingerprint derives a cache key from an archive's size and
// modification time. Two different archives are exceedingly unlikely
// to collide; a changed archive with the same size and nanosecond mtime
// would be a filesystem-clock coincidence, not a cache correctness bug
// this package can detect on its own.
func Fingerprint(size int64, modTime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", size, modTime.UnixNano())))
	return hex.EncodeToString(sum[:])
}

type cachedTrailer struct {
	Entries        []apack.TOCEntry `json:"entries"`
	GlobalChecksum uint64           `json:"global_checksum"`
	HasGlobal      bool             `json:"has_global"`
}

// Get returns the cached Trailer for fingerprint, or ok=false on a
// cache miss.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*apack.Trailer, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apackerr.New(apackerr.KindIO, "toccache-get", err)
	}
	var ct cachedTrailer
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, false, apackerr.New(apackerr.KindFormat, "toccache-get", err)
	}
	return &apack.Trailer{Entries: ct.Entries, GlobalChecksum: ct.GlobalChecksum, HasGlobal: ct.HasGlobal}, true, nil
}

// Put stores trailer under fingerprint with the Cache's configured TTL.
func (c *Cache) Put(ctx context.Context, fingerprint string, trailer *apack.Trailer) error {
	ct := cachedTrailer{Entries: trailer.Entries, GlobalChecksum: trailer.GlobalChecksum, HasGlobal: trailer.HasGlobal}
	data, err := json.Marshal(ct)
	if err != nil {
		return apackerr.New(apackerr.KindFormat, "toccache-put", err)
	}
	if err := c.client.Set(ctx, keyPrefix+fingerprint, data, c.ttl).Err(); err != nil {
		return apackerr.New(apackerr.KindIO, "toccache-put", err)
	}
	return nil
}

// Invalidate drops any cached Trailer for fingerprint.
func (c *Cache) Invalidate(ctx context.Context, fingerprint string) error {
	if err := c.client.Del(ctx, keyPrefix+fingerprint).Err(); err != nil {
		return apackerr.New(apackerr.KindIO, "toccache-invalidate", err)
	}
	return nil
}
