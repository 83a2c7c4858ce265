package categoryboost

import (
	"math"
	"sync/atomic"

	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

// DefaultBeta is the boost strength used when none is configured.
const DefaultBeta = 1.0

// BetaTuner holds the boost strength applied by the scoring script. It is
// read on every boosted search and may be changed at runtime.
type BetaTuner struct {
	bits atomic.Uint64
}

// NewBetaTuner returns a tuner set to initial.
func NewBetaTuner(initial float64) (*BetaTuner, error) {
	t := &BetaTuner{}
	if err := t.Set(initial); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the current beta.
func (t *BetaTuner) Get() float64 {
	return math.Float64frombits(t.bits.Load())
}

// Set replaces beta. It must be a finite value >= 0.
func (t *BetaTuner) Set(beta float64) error {
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return apperrors.InvalidInput("beta must be a finite number")
	}
	if beta < 0 {
		return apperrors.InvalidInputf("beta must be >= 0, got %g", beta)
	}
	t.bits.Store(math.Float64bits(beta))
	return nil
}
