package api

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	"StockDash/internal/usecase"
	xhttp "StockDash/pkg/http"
	"StockDash/pkg/http/middleware"
	xlogger "StockDash/pkg/logger"
	xutil "StockDash/pkg/util"

	"github.com/labstack/echo/v4"
)

//go:embed web/index.html
var indexHTML []byte

type SecurityLister interface {
	ListSecurities(ctx context.Context) ([]models.SecurityOption, error)
}

type ChartService interface {
	Series(ctx context.Context, source string, req models.ChartRequest) (*usecase.SeriesResult, error)
	Chart(ctx context.Context, source string, req models.ChartRequest) (*usecase.ChartResult, error)
}

// DashboardEchoHandler serves the dashboard page and its JSON API.
type DashboardEchoHandler struct {
	logger     *xlogger.Logger
	securities SecurityLister
	charts     ChartService
	limiter    middleware.Allower
	now        func() time.Time
}

// NewDashboardEchoHandler builds the handler. limiter may be nil to disable per-client limits.
func NewDashboardEchoHandler(logger *xlogger.Logger, securities SecurityLister, charts ChartService, limiter middleware.Allower) *DashboardEchoHandler {
	return &DashboardEchoHandler{
		logger:     logger,
		securities: securities,
		charts:     charts,
		limiter:    limiter,
		now:        time.Now,
	}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter))
	}
	g.GET("/securities", h.Securities)
	g.GET("/series", h.Series)
	g.GET("/chart", h.Chart)
}

func (h *DashboardEchoHandler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *DashboardEchoHandler) Securities(c echo.Context) error {
	opts, err := h.securities.ListSecurities(c.Request().Context())
	if err != nil {
		return h.fail(c, "securities", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, opts)
}

func (h *DashboardEchoHandler) Series(c echo.Context) error {
	req := &models.SeriesRequest{}
	if verr := xhttp.BindQuery(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.Series(c.Request().Context(), "api", h.chartRequest(req.Symbol, req.Start, req.End, false))
	if err != nil {
		return h.fail(c, "series", err)
	}
	setDegraded(c, res)
	return xhttp.SuccessResponse(c, models.ToTransport(res.Series))
}

func (h *DashboardEchoHandler) Chart(c echo.Context) error {
	req := &models.ChartRequestHTTP{}
	if verr := xhttp.BindQuery(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.charts.Chart(c.Request().Context(), "api", h.chartRequest(req.Symbol, req.Start, req.End, req.Trend == 1))
	if err != nil {
		return h.fail(c, "chart", err)
	}
	setDegraded(c, res.SeriesResult)
	return xhttp.SuccessResponse(c, res.Figure)
}

// chartRequest fills an empty start or end from the default window.
func (h *DashboardEchoHandler) chartRequest(symbol, start, end string, trend bool) models.ChartRequest {
	defStart, defEnd := xutil.DefaultWindow(h.now())
	return models.ChartRequest{
		Symbol:    xutil.NormalizeSymbol(symbol),
		Start:     xutil.ParseDateDefault(start, defStart),
		End:       xutil.ParseDateDefault(end, defEnd),
		ShowTrend: trend,
	}
}

func setDegraded(c echo.Context, res *usecase.SeriesResult) {
	if res != nil && res.Degraded {
		c.Response().Header().Set("X-Data-Source", "archive")
	}
}

func (h *DashboardEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := ToAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// ToAppError maps a domain error onto its HTTP form. 5xx messages never carry the cause.
func ToAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrInvalidRange):
		appErr = xhttp.BadRequestError(err.Error())
		appErr.Code = "ERR_INVALID_RANGE"
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, domain.ErrNotFound):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, domain.ErrInsufficientData):
		appErr = xhttp.UnprocessableError(err.Error())
		appErr.Code = "ERR_INSUFFICIENT_DATA"
	case errors.Is(err, domain.ErrMalformedResponse):
		appErr = xhttp.BadGatewayError("upstream returned an unexpected response")
	case errors.Is(err, domain.ErrNetwork):
		appErr = xhttp.ServiceUnavailableError("upstream unavailable")
	default:
		appErr = xhttp.InternalError("Something went wrong")
	}
	return appErr.WithError(err)
}
