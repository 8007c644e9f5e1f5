package usecase

import (
	"context"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	applogger "StockDash/pkg/logger"
)

const eventPublishTimeout = 2 * time.Second

// ChartUseCase serves series and figures to the outer surfaces and records an event per request.
type ChartUseCase struct {
	series *SeriesUseCase
	events domrepo.EventPublisher
	log    *applogger.Logger
	now    func() time.Time
}

func NewChartUseCase(series *SeriesUseCase, events domrepo.EventPublisher, l *applogger.Logger) *ChartUseCase {
	return &ChartUseCase{series: series, events: events, log: l, now: time.Now}
}

// ChartResult is a served chart: the series it was drawn from and the figure.
type ChartResult struct {
	*SeriesResult
	Figure models.Figure
}

// Series fetches the enriched series for req. source names the surface ("api", "ws").
func (uc *ChartUseCase) Series(ctx context.Context, source string, req models.ChartRequest) (*SeriesResult, error) {
	began := uc.now()
	res, err := uc.series.Fetch(ctx, req.Symbol, req.Start, req.End)
	uc.publish(ctx, source, req, res, err, uc.now().Sub(began))
	return res, err
}

// Chart fetches the series for req and builds its figure.
func (uc *ChartUseCase) Chart(ctx context.Context, source string, req models.ChartRequest) (*ChartResult, error) {
	res, err := uc.Series(ctx, source, req)
	if err != nil {
		return nil, err
	}
	return &ChartResult{SeriesResult: res, Figure: BuildFigure(res.Series, req.ShowTrend)}, nil
}

func (uc *ChartUseCase) publish(ctx context.Context, source string, req models.ChartRequest, res *SeriesResult, err error, took time.Duration) {
	if ctx.Err() != nil {
		return
	}
	ev := models.ChartEvent{
		Source:    source,
		Symbol:    req.Symbol,
		Start:     req.Start,
		End:       req.End,
		ShowTrend: req.ShowTrend,
		Duration:  took,
		At:        uc.now().UTC(),
	}
	if res != nil {
		ev.Symbol = res.Series.Symbol
		ev.Start, ev.End = res.Start, res.End
		ev.Bars = res.Series.Len()
		ev.CacheHit = res.CacheHit
		ev.Degraded = res.Degraded
	}
	if err != nil {
		ev.Error = domain.Code(err)
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if perr := uc.events.PublishChartEvent(pctx, ev); perr != nil {
		uc.log.Warn("chart event not published", applogger.String("symbol", ev.Symbol), applogger.Error(perr))
	}
}
