package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

// Hashing is a deterministic feature-hashing embedder for development and
// tests. Word tokens and character bigrams are hashed into signed buckets,
// so texts sharing words or syllables land close together.
type Hashing struct {
	dims int
}

var _ Embedder = (*Hashing)(nil)

// NewHashing creates a hashing embedder with dims buckets.
func NewHashing(dims int) (*Hashing, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("hashing embedder: dimensions must be > 0, got %d", dims)
	}
	return &Hashing{dims: dims}, nil
}

// Embed hashes text. It never fails.
func (h *Hashing) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, token := range tokenize(text) {
		h.add(vec, "w:"+token, 1)
		runes := []rune(token)
		for i := 0; i+1 < len(runes); i++ {
			h.add(vec, "b:"+string(runes[i:i+2]), 0.5)
		}
	}
	return Normalize(vec), nil
}

// Dimensions returns the bucket count.
func (h *Hashing) Dimensions() int {
	return h.dims
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	bucket := int(sum % uint64(h.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
