// Package embedding turns product and query text into normalized vectors.
package embedding

import (
	"context"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Embedder produces L2-normalized vectors of a fixed dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

var (
	embedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisearch_embedding_requests_total",
			Help: "Embedding provider calls by provider and result.",
		},
		[]string{"provider", "result"},
	)

	embedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aisearch_embedding_request_duration_seconds",
			Help:    "Embedding provider call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisearch_embedding_cache_lookups_total",
			Help: "Embedding cache lookups by cache and result (hit, miss, error).",
		},
		[]string{"cache", "result"},
	)
)

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
