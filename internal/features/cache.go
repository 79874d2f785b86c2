package features

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/geomath"
	"github.com/shadewalk/shadewalk/internal/model"
)

// DefaultKeyPrecision quantizes viewport bounds to 4 decimal places
// (roughly 10m), so pan inertia and projection float noise hit the cache.
const DefaultKeyPrecision = 4

// CacheOptions configures the single-slot feature cache.
type CacheOptions struct {
	// KeyPrecision is the decimal precision of the quantized bounds key.
	// Default: DefaultKeyPrecision.
	KeyPrecision int

	// FailOpen controls the cold-cache fetch-failure fallback: when true
	// (the default behavior of the original system) an empty feature set
	// is returned and the surface renders no shadow; when false the error
	// propagates instead.
	FailOpen bool
}

// Cache memoizes the most recent viewport's FeatureSet. A single live slot
// is all the single-viewport assumption needs; a new key replaces it
// wholesale. Out-of-order fetch completions are discarded by token
// comparison — soft cancellation, the stale fetch still runs to completion
// but its result never lands in the slot.
type Cache struct {
	fetcher Fetcher
	opts    CacheOptions

	mu        sync.Mutex
	key       string
	features  *FeatureSet
	nextToken uint64
}

// NewCache wraps fetcher with the single-slot cache.
func NewCache(fetcher Fetcher, opts CacheOptions) *Cache {
	if opts.KeyPrecision <= 0 {
		opts.KeyPrecision = DefaultKeyPrecision
	}
	return &Cache{fetcher: fetcher, opts: opts}
}

// GetFeatures returns the building FeatureSet for bounds, fetching only on
// a key miss. On fetch failure it prefers stale contents over nothing; with
// a cold cache the FailOpen option decides between an empty set and the
// error.
func (c *Cache) GetFeatures(ctx context.Context, bounds model.Bounds) (*FeatureSet, error) {
	key := geomath.QuantizeBounds(bounds, c.opts.KeyPrecision)

	c.mu.Lock()
	if key == c.key && !c.features.Empty() {
		cached := c.features
		c.mu.Unlock()
		return cached, nil
	}
	c.nextToken++
	token := c.nextToken
	c.mu.Unlock()

	fetched, err := c.fetcher.FetchFeatures(ctx, bounds)

	c.mu.Lock()
	defer c.mu.Unlock()
	stale := token < c.nextToken

	if err != nil {
		if !c.features.Empty() {
			zap.L().Warn("features: fetch failed, serving stale cache",
				zap.String("key", key),
				zap.Error(err),
			)
			return c.features, nil
		}
		if c.opts.FailOpen {
			zap.L().Warn("features: fetch failed with cold cache, failing open to empty set",
				zap.String("key", key),
				zap.Error(err),
			)
			return &FeatureSet{Bounds: bounds}, nil
		}
		return nil, eris.Wrap(err, "features: fetch with cold cache")
	}

	if stale {
		// A newer fetch started while this one was in flight; its result
		// owns the slot. This one still serves its own caller.
		zap.L().Debug("features: discarding stale fetch result", zap.Uint64("token", token))
		return fetched, nil
	}

	c.key = key
	c.features = fetched
	return fetched, nil
}
