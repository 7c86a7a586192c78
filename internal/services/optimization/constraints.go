package optimization

import (
	"fmt"
	"math"

	"AnchorFolio/internal/domain/models"

	"gonum.org/v1/gonum/mat"
)

// Bound is the per-asset weight interval enforced by the solver.
type Bound struct {
	Min float64
	Max float64
}

// BuildBounds derives the per-asset intervals from the anchor band and the
// per-asset cap. Fails with ErrInfeasibleConstraints when no weight vector
// can satisfy all intervals and still sum to one.
func BuildBounds(symbols []string, anchor string) ([]Bound, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty symbol set", models.ErrInfeasibleConstraints)
	}
	anchorIdx := -1
	bounds := make([]Bound, len(symbols))
	for i, s := range symbols {
		if s == anchor {
			anchorIdx = i
			bounds[i] = Bound{Min: models.AnchorMinWeight, Max: models.AnchorMaxWeight}
			continue
		}
		bounds[i] = Bound{Min: 0, Max: models.MaxPerAssetWeight}
	}
	if anchorIdx < 0 {
		return nil, fmt.Errorf("%w: anchor %s not in candidate set", models.ErrInfeasibleConstraints, anchor)
	}
	minSum, maxSum := 0.0, 0.0
	for _, b := range bounds {
		minSum += b.Min
		maxSum += b.Max
	}
	if minSum > 1+models.WeightEpsilon || maxSum < 1-models.WeightEpsilon {
		return nil, fmt.Errorf("%w: bounds admit total weight [%.2f, %.2f], need 1",
			models.ErrInfeasibleConstraints, minSum, maxSum)
	}
	return bounds, nil
}

// CheckCovariance validates shape, symmetry and positive semi-definiteness,
// returning the matrix in gonum form. Rank-deficient or asymmetric inputs fail
// with ErrDegenerateCovariance.
func CheckCovariance(symbols []string, cov [][]float64) (*mat.SymDense, error) {
	n := len(symbols)
	if len(cov) != n {
		return nil, fmt.Errorf("%w: covariance is %dx%d, have %d symbols",
			models.ErrDegenerateCovariance, len(cov), len(cov), n)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(cov[i]) != n {
			return nil, fmt.Errorf("%w: covariance row %d has %d columns",
				models.ErrDegenerateCovariance, i, len(cov[i]))
		}
		for j := i; j < n; j++ {
			if math.Abs(cov[i][j]-cov[j][i]) > 1e-9 {
				return nil, fmt.Errorf("%w: covariance not symmetric at (%d,%d)",
					models.ErrDegenerateCovariance, i, j)
			}
			if !isFinite(cov[i][j]) {
				return nil, fmt.Errorf("%w: non-finite covariance at (%d,%d)",
					models.ErrDegenerateCovariance, i, j)
			}
			sym.SetSym(i, j, cov[i][j])
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: matrix is singular or not positive definite",
			models.ErrDegenerateCovariance)
	}
	return sym, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// projectToBounds clamps each coordinate into its interval.
func projectToBounds(x []float64, bounds []Bound) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(bounds[i].Min, math.Min(bounds[i].Max, x[i]))
	}
	return proj
}

// repairWeights clamps to bounds and redistributes the residual across assets
// with remaining slack until the vector sums to one. Deterministic; at most a
// handful of passes are needed since each pass saturates at least one bound.
func repairWeights(x []float64, bounds []Bound) []float64 {
	w := projectToBounds(x, bounds)
	for pass := 0; pass < len(w)+1; pass++ {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		residual := 1 - sum
		if math.Abs(residual) <= models.WeightEpsilon/2 {
			break
		}
		slack := 0.0
		for i := range w {
			if residual > 0 {
				slack += bounds[i].Max - w[i]
			} else {
				slack += w[i] - bounds[i].Min
			}
		}
		if slack <= 0 {
			break
		}
		for i := range w {
			var room float64
			if residual > 0 {
				room = bounds[i].Max - w[i]
			} else {
				room = w[i] - bounds[i].Min
			}
			w[i] += residual * room / slack
		}
		w = projectToBounds(w, bounds)
	}
	return w
}
