package api

import (
	"errors"
	"net/http"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/services/optimization"
	"AnchorFolio/internal/usecase"
	xhttp "AnchorFolio/pkg/http"
	xlogger "AnchorFolio/pkg/logger"
	xutil "AnchorFolio/pkg/util"

	"github.com/labstack/echo/v4"
)

// PortfolioEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type PortfolioEchoHandler struct {
	logger    *xlogger.Logger
	alloc     *usecase.AllocationUseCase
	risk      *usecase.RiskReportUseCase
	signals   *usecase.SignalsUseCase
	rebalance *usecase.RebalanceUseCase
	backtest  *usecase.BacktestUseCase
	candles   *usecase.CandlesUseCase
}

func NewPortfolioEchoHandler(
	logger *xlogger.Logger,
	alloc *usecase.AllocationUseCase,
	risk *usecase.RiskReportUseCase,
	signals *usecase.SignalsUseCase,
	rebalance *usecase.RebalanceUseCase,
	backtest *usecase.BacktestUseCase,
	candles *usecase.CandlesUseCase,
) *PortfolioEchoHandler {
	return &PortfolioEchoHandler{
		logger:    logger,
		alloc:     alloc,
		risk:      risk,
		signals:   signals,
		rebalance: rebalance,
		backtest:  backtest,
		candles:   candles,
	}
}

func (h *PortfolioEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/optimize", h.Optimize)
	g.GET("/risk-report", h.RiskReport)
	g.POST("/signals", h.Signals)
	g.GET("/correlation", h.Correlation)
	g.GET("/diversification", h.Diversification)
	g.POST("/rebalance/anchor", h.RebalanceAnchor)
	g.POST("/rebalance/diversify", h.RebalanceDiversify)
	g.POST("/backtest", h.Backtest)
	g.POST("/factor-exposure", h.FactorExposure)
	g.GET("/candles", h.Candles)
}

func (h *PortfolioEchoHandler) Optimize(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.alloc.Optimize(c.Request().Context(), usecase.OptimizeParams{
		Objective:        optimization.Objective(req.Objective),
		Symbols:          req.Symbols,
		TargetReturn:     req.TargetReturn,
		TargetVolatility: req.TargetVol,
		LookbackDays:     req.LookbackDays,
	})
	if err != nil {
		h.logger.Error("optimize usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PortfolioEchoHandler) RiskReport(c echo.Context) error {
	req := &models.RiskReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.risk.BuildReport(c.Request().Context(), usecase.RiskReportParams{
		Symbol:       req.Symbol,
		LookbackDays: req.LookbackDays,
	})
	if err != nil {
		h.logger.Error("risk report usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *PortfolioEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	batch, err := h.signals.GenerateBatch(c.Request().Context(), usecase.GenerateParams{
		Symbols:  req.Symbols,
		Category: models.TradeCategory(req.Category),
	})
	if err != nil {
		h.logger.Error("signals usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	if req.ActiveOnly {
		batch.Signals = batch.Active(time.Now())
	}
	return xhttp.SuccessResponse(c, batch)
}

func (h *PortfolioEchoHandler) Correlation(c echo.Context) error {
	req := &models.CorrelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	matrix, err := h.alloc.CorrelationMatrix(c.Request().Context(), req.Symbols, req.LookbackDays)
	if err != nil {
		h.logger.Error("correlation usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, matrix)
}

func (h *PortfolioEchoHandler) Diversification(c echo.Context) error {
	req := &models.CorrelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	score, err := h.alloc.DiversificationScore(c.Request().Context(), req.Symbols, req.LookbackDays)
	if err != nil {
		h.logger.Error("diversification usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbols":       req.Symbols,
		"lookback_days": req.LookbackDays,
		"score":         score,
	})
}

func (h *PortfolioEchoHandler) RebalanceAnchor(c echo.Context) error {
	req := &models.AnchorRebalanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	actions, err := h.rebalance.PlanAnchor(c.Request().Context(), req.Weights, req.TargetAnchor)
	if err != nil {
		h.logger.Error("anchor rebalance usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"target_anchor": req.TargetAnchor,
		"actions":       actions,
	})
}

func (h *PortfolioEchoHandler) RebalanceDiversify(c echo.Context) error {
	req := &models.DiversifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	actions, err := h.rebalance.PlanDiversify(c.Request().Context(), req.Weights, req.Candidates, req.Budget, req.LookbackDays)
	if err != nil {
		h.logger.Error("diversify usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"budget":        req.Budget,
		"lookback_days": req.LookbackDays,
		"actions":       actions,
	})
}

func (h *PortfolioEchoHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.backtest.Run(c.Request().Context(), req.Weights, req.LookbackDays)
	if err != nil {
		h.logger.Error("backtest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PortfolioEchoHandler) FactorExposure(c echo.Context) error {
	req := &models.FactorExposureRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	model, err := h.risk.FactorExposure(c.Request().Context(), usecase.FactorExposureParams{
		Weights:      req.Weights,
		Factors:      req.Factors,
		LookbackDays: req.LookbackDays,
	})
	if err != nil {
		h.logger.Error("factor exposure usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, model)
}

func (h *PortfolioEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xutil.ParseTimeDefault(req.To, time.Now().UTC())
	from := xutil.ParseTimeDefault(req.From, to.AddDate(0, 0, -90))

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// domainError maps domain sentinel errors onto HTTP-aware app errors so the
// response layer does not collapse them into a 500.
func domainError(err error) error {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrInfeasibleConstraints):
		return xhttp.NewAppError("ERR_INFEASIBLE", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrDegenerateCovariance):
		return xhttp.NewAppError("ERR_DEGENERATE_COVARIANCE", "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, models.ErrInvalidAllocation):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	}
	return err
}
