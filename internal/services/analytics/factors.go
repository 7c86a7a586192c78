package analytics

import (
	"fmt"
	"math"

	"AnchorFolio/internal/domain/models"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minFactorObservations is the floor below which a regression is too noisy
// to report.
const minFactorObservations = 30

// factorSignificance is the p-value threshold for flagging an exposure.
const factorSignificance = 0.05

// FactorExposure is one regression coefficient with its significance
// statistics.
type FactorExposure struct {
	Beta        float64 `json:"beta"`
	TStat       float64 `json:"t_stat"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
}

// FactorModel is a fitted OLS regression of daily portfolio returns on daily
// factor returns. Volatilities and alpha are annualized; ExplainedRatio is
// the share of portfolio variance the factors account for.
type FactorModel struct {
	Factors         []string                  `json:"factors"`
	Alpha           FactorExposure            `json:"alpha"`
	AlphaAnnualized float64                   `json:"alpha_annualized"`
	Exposures       map[string]FactorExposure `json:"exposures"`
	RSquared        float64                   `json:"r_squared"`
	AdjRSquared     float64                   `json:"adj_r_squared"`
	PortfolioVol    float64                   `json:"portfolio_volatility"`
	FactorVol       float64                   `json:"factor_volatility"`
	ResidualVol     float64                   `json:"residual_volatility"`
	ExplainedRatio  float64                   `json:"factor_explained_ratio"`
	Contributions   map[string]float64        `json:"risk_contributions"`
	Observations    int                       `json:"observations"`
}

// FactorAnalyzer fits factor regressions over date-aligned return rows.
type FactorAnalyzer struct{}

func NewFactorAnalyzer() *FactorAnalyzer { return &FactorAnalyzer{} }

// Analyze regresses the portfolio return series on the factor rows. Every
// factor row must be aligned with the portfolio series; the caller is
// responsible for date alignment.
func (a *FactorAnalyzer) Analyze(portfolio []float64, names []string, factors [][]float64) (*FactorModel, error) {
	n := len(portfolio)
	k := len(factors)
	if k == 0 || len(names) != k {
		return nil, fmt.Errorf("factor names and series must match: %d names, %d series", len(names), k)
	}
	for i, f := range factors {
		if len(f) != n {
			return nil, fmt.Errorf("factor %s has %d observations, portfolio has %d", names[i], len(f), n)
		}
	}
	if n < minFactorObservations {
		return nil, fmt.Errorf("%w: %d aligned observations, need %d", models.ErrInsufficientData, n, minFactorObservations)
	}
	dof := n - k - 1
	if dof < 1 {
		return nil, fmt.Errorf("%w: %d observations for %d factors", models.ErrInsufficientData, n, k)
	}

	// Design matrix with a leading intercept column.
	x := mat.NewDense(n, k+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j := 0; j < k; j++ {
			x.Set(i, j+1, factors[j][i])
		}
	}
	y := mat.NewVecDense(n, append([]float64(nil), portfolio...))

	var coef mat.VecDense
	if err := coef.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("%w: collinear factor returns", models.ErrDegenerateCovariance)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &coef)
	mean := stat.Mean(portfolio, nil)
	rss, tss := 0.0, 0.0
	for i := 0; i < n; i++ {
		r := portfolio[i] - fitted.AtVec(i)
		rss += r * r
		d := portfolio[i] - mean
		tss += d * d
	}
	r2 := 0.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(dof)

	// Coefficient covariance sigma^2 (X'X)^-1 for t statistics.
	sigma2 := rss / float64(dof)
	var xtx, xtxInv mat.Dense
	xtx.Mul(x.T(), x)
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: collinear factor returns", models.ErrDegenerateCovariance)
	}
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	exposure := func(idx int) FactorExposure {
		b := coef.AtVec(idx)
		se := math.Sqrt(sigma2 * xtxInv.At(idx, idx))
		e := FactorExposure{Beta: b}
		switch {
		case se > 0:
			e.TStat = b / se
			e.PValue = 2 * (1 - tdist.CDF(math.Abs(e.TStat)))
		case b != 0:
			// Exact fit: the coefficient is measured without error.
			e.TStat = math.Inf(sign(b))
			e.PValue = 0
		default:
			e.PValue = 1
		}
		e.Significant = e.PValue < factorSignificance
		return e
	}

	model := &FactorModel{
		Factors:         append([]string(nil), names...),
		Alpha:           exposure(0),
		AlphaAnnualized: coef.AtVec(0) * periodsPerYear,
		Exposures:       make(map[string]FactorExposure, k),
		RSquared:        r2,
		AdjRSquared:     adjR2,
		Contributions:   make(map[string]float64, k),
		Observations:    n,
	}
	betas := make([]float64, k)
	for j := 0; j < k; j++ {
		betas[j] = coef.AtVec(j + 1)
		model.Exposures[names[j]] = exposure(j + 1)
	}

	// Variance decomposition over the annualized factor covariance:
	// factor variance is b'Fb, the residual is whatever the factors leave
	// unexplained of total portfolio variance.
	rowDot := make([]float64, k)
	factorVar := 0.0
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			rowDot[i] += stat.Covariance(factors[i], factors[j], nil) * periodsPerYear * betas[j]
		}
		factorVar += betas[i] * rowDot[i]
	}
	portVol := stat.StdDev(portfolio, nil) * math.Sqrt(periodsPerYear)
	portVar := portVol * portVol

	model.PortfolioVol = portVol
	model.FactorVol = math.Sqrt(math.Max(0, factorVar))
	model.ResidualVol = math.Sqrt(math.Max(0, portVar-factorVar))
	if portVar > 0 {
		model.ExplainedRatio = factorVar / portVar
		for i, name := range names {
			model.Contributions[name] = betas[i] * rowDot[i] / portVar
		}
	}
	return model, nil
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
