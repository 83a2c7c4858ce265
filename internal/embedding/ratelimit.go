package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to a hosted provider so that a full reindex
// stays under the account's request quota. Callers block until a token is
// available or ctx is done.
type RateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

var _ Embedder = (*RateLimited)(nil)

// NewRateLimited allows rps calls per second with the given burst.
func NewRateLimited(inner Embedder, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Embed waits for the limiter, then calls the wrapped embedder.
func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.inner.Embed(ctx, text)
}

// Dimensions delegates to the wrapped embedder.
func (r *RateLimited) Dimensions() int {
	return r.inner.Dimensions()
}
