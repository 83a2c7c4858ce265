package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/singleflight"
)

// Cache stores vectors by key. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Cached decorates an Embedder with a cache. Concurrent requests for the
// same text share one provider call. Cache errors are logged and the
// provider is used instead.
type Cached struct {
	inner     Embedder
	cache     Cache
	cacheName string
	namespace string
	group     singleflight.Group
	logger    *slog.Logger
}

var _ Embedder = (*Cached)(nil)

// NewCached wraps inner. namespace separates keys of different models so
// that switching models never serves stale vectors.
func NewCached(inner Embedder, cache Cache, cacheName, namespace string, logger *slog.Logger) *Cached {
	return &Cached{
		inner:     inner,
		cache:     cache,
		cacheName: cacheName,
		namespace: namespace,
		logger:    logger,
	}
}

// Embed returns the cached vector for text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	vec, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues(c.cacheName, "error").Inc()
		c.logger.WarnContext(ctx, "embedding cache read failed", slog.String("cache", c.cacheName), slog.String("error", err.Error()))
	case ok && len(vec) == c.inner.Dimensions():
		cacheLookups.WithLabelValues(c.cacheName, "hit").Inc()
		return vec, nil
	default:
		cacheLookups.WithLabelValues(c.cacheName, "miss").Inc()
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, key, vec); err != nil {
			c.logger.WarnContext(ctx, "embedding cache write failed", slog.String("cache", c.cacheName), slog.String("error", err.Error()))
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Dimensions delegates to the wrapped embedder.
func (c *Cached) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}

// encodeVector packs vec as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes, not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
