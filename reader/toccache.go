package reader

import (
	"context"
	"io"

	"github.com/kenneth/apack/config"
	"github.com/kenneth/apack/providers"
	"github.com/kenneth/apack/toccache"
)

// OpenWithTOCCache is Open, but consults cache for a previously parsed
// Trailer before trusting the one Open itself decoded or scanned from
// ra, and populates cache on a miss. fingerprint should uniquely
// identify this archive's current contents (toccache.Fingerprint from
// size+mtime works for a file-backed Source).
func OpenWithTOCCache(ctx context.Context, ra io.ReaderAt, size int64, cfg *config.Config, bundle *providers.Bundle, password []byte, cache *toccache.Cache, fingerprint string) (*Reader, error) {
	r, err := Open(ctx, ra, size, cfg, bundle, password)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return r, nil
	}
	if cached, ok, cerr := cache.Get(ctx, fingerprint); cerr == nil && ok {
		r.trailer = cached
		return r, nil
	}
	_ = cache.Put(ctx, fingerprint, r.trailer)
	return r, nil
}
