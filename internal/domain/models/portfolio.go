package models

import (
	"fmt"
	"math"
	"sort"
)

// WeightEpsilon is the tolerance applied when validating that portfolio
// weights sum to 1.
const WeightEpsilon = 1e-6

// Anchor band and per-asset cap. The anchor asset is the designated reserve
// asset; every other holding is capped individually.
const (
	AnchorMinWeight   = 0.50
	AnchorMaxWeight   = 0.60
	MaxPerAssetWeight = 0.20
)

// Portfolio is an ordered symbol -> weight allocation. It is mutated only
// through SetWeight; analysis paths treat a snapshot as read-only.
type Portfolio struct {
	Anchor  string
	symbols []string
	weights map[string]float64
}

// NewPortfolio builds a portfolio from a weight map. Symbol order is the
// insertion order of the sorted map keys so construction is deterministic.
func NewPortfolio(anchor string, weights map[string]float64) *Portfolio {
	p := &Portfolio{Anchor: anchor, weights: make(map[string]float64, len(weights))}
	syms := make([]string, 0, len(weights))
	for s := range weights {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	for _, s := range syms {
		p.symbols = append(p.symbols, s)
		p.weights[s] = weights[s]
	}
	return p
}

// Symbols returns the held symbols in order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, len(p.symbols))
	copy(out, p.symbols)
	return out
}

// Weight returns the allocation for symbol, zero if not held.
func (p *Portfolio) Weight(symbol string) float64 { return p.weights[symbol] }

// Weights returns a copy of the weight map. A portfolio reconstructed from
// this map yields identical weights.
func (p *Portfolio) Weights() map[string]float64 {
	out := make(map[string]float64, len(p.weights))
	for s, w := range p.weights {
		out[s] = w
	}
	return out
}

// SetWeight sets the allocation for a symbol, adding it if not yet held.
func (p *Portfolio) SetWeight(symbol string, w float64) error {
	if w < 0 || w > 1 {
		return fmt.Errorf("%w: weight %.6f for %s outside [0,1]", ErrInvalidAllocation, w, symbol)
	}
	if _, ok := p.weights[symbol]; !ok {
		p.symbols = append(p.symbols, symbol)
	}
	p.weights[symbol] = w
	return nil
}

// Validate checks that weights are non-negative and sum to 1 within tolerance.
func (p *Portfolio) Validate() error {
	sum := 0.0
	for s, w := range p.weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %.6f for %s", ErrInvalidAllocation, w, s)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > WeightEpsilon {
		return fmt.Errorf("%w: weights sum to %.8f", ErrInvalidAllocation, sum)
	}
	return nil
}

// ValidateAnchorConstrained additionally checks the anchor band and the
// per-asset cap on every non-anchor holding.
func (p *Portfolio) ValidateAnchorConstrained() error {
	if err := p.Validate(); err != nil {
		return err
	}
	aw := p.weights[p.Anchor]
	if aw < AnchorMinWeight-WeightEpsilon || aw > AnchorMaxWeight+WeightEpsilon {
		return fmt.Errorf("%w: anchor %s weight %.4f outside [%.2f,%.2f]",
			ErrInvalidAllocation, p.Anchor, aw, AnchorMinWeight, AnchorMaxWeight)
	}
	for s, w := range p.weights {
		if s != p.Anchor && w > MaxPerAssetWeight+WeightEpsilon {
			return fmt.Errorf("%w: %s weight %.4f exceeds cap %.2f",
				ErrInvalidAllocation, s, w, MaxPerAssetWeight)
		}
	}
	return nil
}

// ValidateWeights checks a bare weight map without constructing a Portfolio.
func ValidateWeights(weights map[string]float64) error {
	sum := 0.0
	for s, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %.6f for %s", ErrInvalidAllocation, w, s)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > WeightEpsilon {
		return fmt.Errorf("%w: weights sum to %.8f", ErrInvalidAllocation, sum)
	}
	return nil
}
