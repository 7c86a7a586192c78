package optimization

import (
	"fmt"
	"math"

	"AnchorFolio/internal/domain/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Objective selects what the solver optimizes for.
type Objective string

const (
	ObjectiveMaxSharpe        Objective = "max_sharpe"
	ObjectiveMinVolatility    Objective = "min_volatility"
	ObjectiveTargetReturn     Objective = "target_return"
	ObjectiveTargetVolatility Objective = "target_volatility"
)

// IsValidObjective returns true if o is a supported objective.
func IsValidObjective(o Objective) bool {
	switch o {
	case ObjectiveMaxSharpe, ObjectiveMinVolatility, ObjectiveTargetReturn, ObjectiveTargetVolatility:
		return true
	default:
		return false
	}
}

// Request is one optimization call: candidate set, statistics and objective.
// Covariance rows follow Symbols order.
type Request struct {
	Symbols          []string
	Anchor           string
	ExpectedReturns  map[string]float64
	Covariance       [][]float64
	Objective        Objective
	TargetReturn     float64 // ObjectiveTargetReturn only
	TargetVolatility float64 // ObjectiveTargetVolatility only
	RiskFreeRate     float64 // annual, default 0
}

// Result is the solved allocation with its portfolio statistics.
type Result struct {
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	Sharpe         float64            `json:"sharpe_ratio"`
}

// penaltyWeight scales the quadratic penalties for the sum-to-one and
// target equality constraints.
const penaltyWeight = 1000.0

// riskAversion weighs variance against return in the target-return objective.
const riskAversion = 1.0

// Optimizer solves constrained mean-variance allocations. Stateless and safe
// for concurrent use.
type Optimizer struct{}

// NewOptimizer returns a solver instance.
func NewOptimizer() *Optimizer { return &Optimizer{} }

// Optimize solves the request. The anchor weight stays inside its band, every
// other weight inside [0, cap], and the weights sum to one. Fails with
// ErrInfeasibleConstraints or ErrDegenerateCovariance before touching the
// solver when the inputs cannot produce a valid allocation.
func (o *Optimizer) Optimize(req Request) (*Result, error) {
	if !IsValidObjective(req.Objective) {
		return nil, fmt.Errorf("unknown objective %q", req.Objective)
	}
	bounds, err := BuildBounds(req.Symbols, req.Anchor)
	if err != nil {
		return nil, err
	}
	sigma, err := CheckCovariance(req.Symbols, req.Covariance)
	if err != nil {
		return nil, err
	}
	mu := make([]float64, len(req.Symbols))
	for i, s := range req.Symbols {
		r, ok := req.ExpectedReturns[s]
		if !ok {
			return nil, fmt.Errorf("%w: missing expected return for %s", models.ErrInsufficientData, s)
		}
		mu[i] = r
	}

	problem := optimize.Problem{Func: o.objective(req, mu, sigma, bounds)}
	initial := feasibleStart(req.Symbols, req.Anchor, bounds)

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("solver did not converge: %v", result.Status)
		}
	}

	weights := repairWeights(result.X, bounds)
	out := &Result{Weights: make(map[string]float64, len(req.Symbols))}
	for i, s := range req.Symbols {
		out.Weights[s] = weights[i]
		out.ExpectedReturn += mu[i] * weights[i]
	}
	out.Volatility = math.Sqrt(portfolioVariance(weights, sigma))
	if out.Volatility > 0 {
		out.Sharpe = (out.ExpectedReturn - req.RiskFreeRate) / out.Volatility
	}
	if err := o.checkResult(out, req.Anchor); err != nil {
		return nil, err
	}
	return out, nil
}

// objective builds the penalized scalar function for the requested objective.
// Coordinates are projected into their bounds before evaluation so the
// unconstrained solver only explores the feasible box.
func (o *Optimizer) objective(req Request, mu []float64, sigma *mat.SymDense, bounds []Bound) func([]float64) float64 {
	return func(x []float64) float64 {
		w := projectToBounds(x, bounds)
		ret := 0.0
		for i := range w {
			ret += mu[i] * w[i]
		}
		variance := portfolioVariance(w, sigma)

		var obj float64
		switch req.Objective {
		case ObjectiveMaxSharpe:
			std := math.Sqrt(math.Max(variance, 1e-10))
			obj = -(ret - req.RiskFreeRate) / std
		case ObjectiveMinVolatility:
			obj = variance
		case ObjectiveTargetReturn:
			obj = -(ret - riskAversion*variance)
			obj += penaltyWeight * (ret - req.TargetReturn) * (ret - req.TargetReturn)
		case ObjectiveTargetVolatility:
			obj = -ret
			tv2 := req.TargetVolatility * req.TargetVolatility
			obj += penaltyWeight * (variance - tv2) * (variance - tv2)
		}

		sum := 0.0
		for _, v := range w {
			sum += v
		}
		obj += penaltyWeight * (sum - 1) * (sum - 1)
		return obj
	}
}

func (o *Optimizer) checkResult(r *Result, anchor string) error {
	sum := 0.0
	for sym, w := range r.Weights {
		sum += w
		if w < -models.WeightEpsilon {
			return fmt.Errorf("%w: negative weight for %s", models.ErrInfeasibleConstraints, sym)
		}
		if sym == anchor {
			if w < models.AnchorMinWeight-models.WeightEpsilon || w > models.AnchorMaxWeight+models.WeightEpsilon {
				return fmt.Errorf("%w: anchor weight %.4f outside band", models.ErrInfeasibleConstraints, w)
			}
		} else if w > models.MaxPerAssetWeight+models.WeightEpsilon {
			return fmt.Errorf("%w: %s weight %.4f above cap", models.ErrInfeasibleConstraints, sym, w)
		}
	}
	if math.Abs(sum-1) > models.WeightEpsilon {
		return fmt.Errorf("%w: weights sum to %.6f", models.ErrInfeasibleConstraints, sum)
	}
	return nil
}

// feasibleStart places the anchor at its band midpoint and spreads the rest
// evenly, then repairs to the simplex. Fixed start keeps repeated solves on
// the same convergence path.
func feasibleStart(symbols []string, anchor string, bounds []Bound) []float64 {
	n := len(symbols)
	x := make([]float64, n)
	rest := 1 - (models.AnchorMinWeight+models.AnchorMaxWeight)/2
	for i, s := range symbols {
		if s == anchor {
			x[i] = (models.AnchorMinWeight + models.AnchorMaxWeight) / 2
		} else if n > 1 {
			x[i] = rest / float64(n-1)
		}
	}
	return repairWeights(x, bounds)
}

func portfolioVariance(w []float64, sigma *mat.SymDense) float64 {
	v := 0.0
	for i := range w {
		for j := range w {
			v += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return v
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.FunctionThreshold:
		return true
	default:
		return false
	}
}

// SampleStatistics computes the expected-return vector and sample covariance
// matrix from aligned return series, in the order of symbols. Needs at least
// two shared observations.
func SampleStatistics(symbols []string, series []models.ReturnSeries) ([]float64, [][]float64, error) {
	n := len(symbols)
	if len(series) != n {
		return nil, nil, fmt.Errorf("have %d series for %d symbols", len(series), n)
	}
	rows := models.AlignAll(series)
	t := 0
	if len(rows) > 0 {
		t = len(rows[0])
	}
	if t < 2 {
		return nil, nil, fmt.Errorf("%w: %d shared observations across %d symbols",
			models.ErrInsufficientData, t, n)
	}
	mu := make([]float64, n)
	for i := 0; i < n; i++ {
		for _, v := range rows[i] {
			mu[i] += v
		}
		mu[i] /= float64(t)
	}
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			acc := 0.0
			for k := 0; k < t; k++ {
				acc += (rows[i][k] - mu[i]) * (rows[j][k] - mu[j])
			}
			cov[i][j] = acc / float64(t-1)
			cov[j][i] = cov[i][j]
		}
	}
	return mu, cov, nil
}
