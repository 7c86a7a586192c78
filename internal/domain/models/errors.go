package models

import "errors"

// Typed failure taxonomy for the allocation and risk core. Computational
// errors are always surfaced to the immediate caller; only the enrichment
// path degrades silently (see usecase.SignalPipeline).
var (
	// ErrInsufficientData indicates fewer observations than a computation's
	// minimum (e.g. CVaR needs at least 2 returns).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInfeasibleConstraints indicates the optimizer cannot satisfy the
	// anchor band and per-asset caps simultaneously for the candidate set.
	ErrInfeasibleConstraints = errors.New("infeasible constraint set")

	// ErrDegenerateCovariance indicates a singular or non-PSD covariance matrix.
	ErrDegenerateCovariance = errors.New("degenerate covariance matrix")

	// ErrInvalidAllocation indicates caller-supplied weights that do not sum
	// to 1 within tolerance or contain negative values.
	ErrInvalidAllocation = errors.New("invalid allocation")

	// ErrEnrichmentUnavailable indicates the signal-enrichment collaborator
	// failed or timed out. Recovered locally by falling back to the
	// unenriched signal.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
)
