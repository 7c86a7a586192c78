package rebalance

import (
	"context"
	"fmt"
	"math"
	"sort"

	"AnchorFolio/internal/domain/models"
	"AnchorFolio/internal/services/analytics"
)

// scoreImprovementEps is the minimum diversification-score gain required to
// keep adding candidates.
const scoreImprovementEps = 1e-9

// Rebalancer converts current versus target allocations into buy/sell
// actions. Planning never mutates the caller's weight map.
type Rebalancer struct {
	corr   *analytics.CorrelationEngine
	anchor string
}

// NewRebalancer builds a planner around the correlation engine's anchor.
func NewRebalancer(corr *analytics.CorrelationEngine) *Rebalancer {
	return &Rebalancer{corr: corr, anchor: corr.Anchor()}
}

// Anchor returns the planner's anchor symbol.
func (r *Rebalancer) Anchor() string { return r.anchor }

// PlanToAnchorTarget moves the anchor weight to the target and redistributes
// the difference across the remaining symbols in proportion to their current
// weights. Symbols currently at zero weight receive nothing; adding new
// symbols is PlanForDiversification's job. Applying the plan and replanning
// with the same target yields no further actions.
func (r *Rebalancer) PlanToAnchorTarget(current map[string]float64, targetAnchorPct float64) ([]models.RebalanceAction, error) {
	if err := models.ValidateWeights(current); err != nil {
		return nil, err
	}
	if targetAnchorPct < 0 || targetAnchorPct > 1 {
		return nil, fmt.Errorf("%w: target anchor weight %.4f outside [0,1]", models.ErrInvalidAllocation, targetAnchorPct)
	}
	anchorW, ok := current[r.anchor]
	if !ok {
		return nil, fmt.Errorf("%w: anchor %s not held", models.ErrInvalidAllocation, r.anchor)
	}
	delta := targetAnchorPct - anchorW
	if math.Abs(delta) <= models.WeightEpsilon {
		return nil, nil
	}

	restTotal := 0.0
	for sym, w := range current {
		if sym != r.anchor && w > 0 {
			restTotal += w
		}
	}
	if restTotal <= 0 {
		return nil, fmt.Errorf("%w: no non-anchor weight to absorb %.4f", models.ErrInfeasibleConstraints, -delta)
	}

	actions := []models.RebalanceAction{actionFor(r.anchor, delta)}
	for _, sym := range sortedSymbols(current) {
		if sym == r.anchor || current[sym] <= 0 {
			continue
		}
		share := -delta * current[sym] / restTotal
		if math.Abs(share) > models.WeightEpsilon {
			actions = append(actions, actionFor(sym, share))
		}
	}
	return actions, nil
}

// PlanForDiversification greedily buys the candidate with the lowest anchor
// correlation not yet held, funding each purchase from the non-anchor
// holdings proportionally, while the diversification score keeps improving.
// Per-purchase weight is capped by the per-asset limit and the remaining
// budget. Ties in correlation break by lexical symbol order.
func (r *Rebalancer) PlanForDiversification(ctx context.Context, current map[string]float64, candidatePool []string, budget float64, lookbackDays int) ([]models.RebalanceAction, error) {
	if err := models.ValidateWeights(current); err != nil {
		return nil, err
	}
	if budget <= 0 {
		return nil, nil
	}

	candidates := make([]string, 0, len(candidatePool))
	for _, sym := range candidatePool {
		if w, held := current[sym]; !held || w <= models.WeightEpsilon {
			candidates = append(candidates, sym)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	corrs, err := r.corr.AnchorCorrelations(ctx, candidates, lookbackDays)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, iok := corrs[candidates[i]]
		cj, jok := corrs[candidates[j]]
		if iok != jok {
			return iok // defined correlations rank ahead of undefined ones
		}
		if iok && ci != cj {
			return ci < cj
		}
		return candidates[i] < candidates[j]
	})

	universe := append(sortedSymbols(current), candidates...)
	series, err := r.corr.ReturnSeries(ctx, universe, lookbackDays)
	if err != nil {
		return nil, err
	}
	seriesBySym := make(map[string]models.ReturnSeries, len(universe))
	for i, sym := range universe {
		seriesBySym[sym] = series[i]
	}

	working := copyWeights(current)
	bestScore := r.score(working, seriesBySym)
	budgetLeft := budget

	for _, sym := range candidates {
		slice := math.Min(models.MaxPerAssetWeight, budgetLeft)
		if slice <= models.WeightEpsilon {
			break
		}
		trial, ok := fundPurchase(working, r.anchor, sym, slice)
		if !ok {
			break
		}
		score := r.score(trial, seriesBySym)
		if score <= bestScore+scoreImprovementEps {
			break
		}
		working = trial
		bestScore = score
		budgetLeft -= slice
	}

	return diffWeights(current, working), nil
}

// score evaluates the diversification score of the held symbol set.
func (r *Rebalancer) score(weights map[string]float64, series map[string]models.ReturnSeries) float64 {
	syms := heldSymbols(weights)
	s := make([]models.ReturnSeries, len(syms))
	for i, sym := range syms {
		s[i] = series[sym]
	}
	return r.corr.ScoreFromSeries(syms, s)
}

// fundPurchase returns a copy of weights with slice allocated to sym, funded
// proportionally from the non-anchor holdings. Fails when they cannot cover
// the slice.
func fundPurchase(weights map[string]float64, anchor, sym string, slice float64) (map[string]float64, bool) {
	restTotal := 0.0
	for s, w := range weights {
		if s != anchor && w > 0 {
			restTotal += w
		}
	}
	if restTotal < slice+models.WeightEpsilon {
		return nil, false
	}
	out := copyWeights(weights)
	for s, w := range out {
		if s != anchor && w > 0 {
			out[s] = w - slice*w/restTotal
		}
	}
	out[sym] = slice
	return out, true
}

func heldSymbols(weights map[string]float64) []string {
	syms := make([]string, 0, len(weights))
	for s, w := range weights {
		if w > models.WeightEpsilon {
			syms = append(syms, s)
		}
	}
	sort.Strings(syms)
	return syms
}

func sortedSymbols(weights map[string]float64) []string {
	syms := make([]string, 0, len(weights))
	for s := range weights {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

func copyWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for s, w := range weights {
		out[s] = w
	}
	return out
}

// diffWeights emits one action per symbol whose weight changed, lexically
// ordered.
func diffWeights(before, after map[string]float64) []models.RebalanceAction {
	var actions []models.RebalanceAction
	for _, sym := range sortedSymbols(after) {
		d := after[sym] - before[sym]
		if math.Abs(d) > models.WeightEpsilon {
			actions = append(actions, actionFor(sym, d))
		}
	}
	return actions
}

func actionFor(symbol string, delta float64) models.RebalanceAction {
	side := models.ActionBuy
	if delta < 0 {
		side = models.ActionSell
	}
	return models.RebalanceAction{Symbol: symbol, Action: side, Amount: delta}
}
