package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	dsvc "StockDash/internal/domain/service"
	"StockDash/pkg/cache"
	applogger "StockDash/pkg/logger"
	xutil "StockDash/pkg/util"

	"golang.org/x/sync/singleflight"
)

// SeriesConfig carries the tunables of SeriesUseCase.
type SeriesConfig struct {
	TTL     time.Duration
	MinDate time.Time
	Timeout time.Duration
}

// SeriesUseCase fetches daily bars and enriches them with a fitted trend line.
type SeriesUseCase struct {
	provider domrepo.BarProvider
	fitter   dsvc.TrendFitter
	archive  domrepo.BarArchive // nil when archiving is disabled
	cache    cache.Service
	cfg      SeriesConfig
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time

	group singleflight.Group
}

func NewSeriesUseCase(
	provider domrepo.BarProvider,
	fitter dsvc.TrendFitter,
	archive domrepo.BarArchive,
	c cache.Service,
	cfg SeriesConfig,
	m domrepo.Metrics,
	l *applogger.Logger,
) *SeriesUseCase {
	return &SeriesUseCase{
		provider: provider,
		fitter:   fitter,
		archive:  archive,
		cache:    c,
		cfg:      cfg,
		metrics:  m,
		log:      l,
		now:      time.Now,
	}
}

// SeriesResult is an enriched series plus how it was obtained.
type SeriesResult struct {
	Series   *models.EnrichedSeries
	Start    time.Time
	End      time.Time
	CacheHit bool
	Degraded bool // served from the archive because the provider was unreachable
}

// FetchAndEnrich returns the enriched daily series of symbol over [start, end].
func (uc *SeriesUseCase) FetchAndEnrich(ctx context.Context, symbol string, start, end time.Time) (*models.EnrichedSeries, error) {
	res, err := uc.Fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	return res.Series, nil
}

// Fetch is FetchAndEnrich with cache and degradation details.
// Validation happens before any upstream call.
func (uc *SeriesUseCase) Fetch(ctx context.Context, symbol string, start, end time.Time) (*SeriesResult, error) {
	symbol, start, end, err := uc.normalize(symbol, start, end)
	if err != nil {
		return nil, err
	}

	key := cache.GenerateKeyWithParams("series", symbol, xutil.FormatDate(start), xutil.FormatDate(end))
	if s, ok := uc.cached(ctx, key); ok {
		uc.metrics.RecordBarsServed(s.Len())
		return &SeriesResult{Series: s, Start: start, End: end, CacheHit: true}, nil
	}

	ch := uc.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := detached(ctx, uc.cfg.Timeout)
		defer cancel()
		return uc.load(fctx, key, symbol, start, end)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			uc.metrics.RecordError(domain.Code(r.Err))
			return nil, r.Err
		}
		res := *r.Val.(*SeriesResult)
		uc.metrics.RecordBarsServed(res.Series.Len())
		return &res, nil
	}
}

func (uc *SeriesUseCase) normalize(symbol string, start, end time.Time) (string, time.Time, time.Time, error) {
	symbol = xutil.NormalizeSymbol(symbol)
	if symbol == "" {
		return "", start, end, fmt.Errorf("symbol is required: %w", domain.ErrInvalidRequest)
	}
	start, end = xutil.TruncateDay(start), xutil.TruncateDay(end)
	if start.After(end) {
		return "", start, end, fmt.Errorf("start %s after end %s: %w",
			xutil.FormatDate(start), xutil.FormatDate(end), domain.ErrInvalidRange)
	}
	if !uc.cfg.MinDate.IsZero() && start.Before(uc.cfg.MinDate) {
		return "", start, end, fmt.Errorf("start %s before %s: %w",
			xutil.FormatDate(start), xutil.FormatDate(uc.cfg.MinDate), domain.ErrInvalidRange)
	}
	if today := xutil.TruncateDay(uc.now()); end.After(today) {
		end = today
		if start.After(end) {
			return "", start, end, fmt.Errorf("start %s is in the future: %w", xutil.FormatDate(start), domain.ErrInvalidRange)
		}
	}
	return symbol, start, end, nil
}

func (uc *SeriesUseCase) cached(ctx context.Context, key string) (*models.EnrichedSeries, bool) {
	var rec models.SeriesRecord
	err := uc.cache.Get(ctx, key, &rec)
	if err != nil {
		uc.metrics.RecordCache("series", false)
		if !errors.Is(err, cache.ErrCacheMiss) {
			uc.log.Warn("series cache read failed", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	s, err := models.FromTransport(rec)
	if err != nil {
		uc.metrics.RecordCache("series", false)
		uc.log.Warn("dropping corrupt series cache entry", applogger.String("key", key), applogger.Error(err))
		_ = uc.cache.Delete(ctx, key)
		return nil, false
	}
	uc.metrics.RecordCache("series", true)
	return s, true
}

func (uc *SeriesUseCase) load(ctx context.Context, key, symbol string, start, end time.Time) (*SeriesResult, error) {
	degraded := false
	bars, err := uc.provider.DailyBars(ctx, symbol, start, end)
	if err != nil {
		archived, ok := uc.fromArchive(ctx, symbol, start, end, err)
		if !ok {
			return nil, fmt.Errorf("fetch %s: %w", symbol, err)
		}
		bars, degraded = archived, true
	}

	bars = sortBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s between %s and %s: %w",
			symbol, xutil.FormatDate(start), xutil.FormatDate(end), domain.ErrInsufficientData)
	}

	line, err := uc.fitter.FitTrend(ctx, adjCloses(bars))
	if err != nil {
		return nil, fmt.Errorf("fit trend for %s: %w", symbol, err)
	}

	series := &models.EnrichedSeries{Symbol: symbol, Bars: bars, Trend: line.Values}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("series %s: %w", symbol, err)
	}

	if !degraded {
		if err := uc.cache.Set(ctx, key, models.ToTransport(series), uc.cfg.TTL); err != nil {
			uc.log.Warn("series cache write failed", applogger.String("key", key), applogger.Error(err))
		}
		if uc.archive != nil {
			if err := uc.archive.Save(ctx, symbol, bars); err != nil {
				uc.log.Warn("archive save failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
	}

	return &SeriesResult{Series: series, Start: start, End: end, Degraded: degraded}, nil
}

// fromArchive serves archived bars when the provider is unreachable. Only network failures qualify.
func (uc *SeriesUseCase) fromArchive(ctx context.Context, symbol string, start, end time.Time, cause error) ([]models.PriceBar, bool) {
	if uc.archive == nil || !domain.IsRetryable(cause) {
		return nil, false
	}
	bars, err := uc.archive.Load(ctx, symbol, start, end)
	if err != nil {
		uc.log.Warn("archive load failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, false
	}
	if len(bars) == 0 {
		return nil, false
	}
	uc.log.Warn("serving archived bars, provider unavailable",
		applogger.String("symbol", symbol),
		applogger.Int("bars", len(bars)),
		applogger.Error(cause),
	)
	return bars, true
}

// sortBars orders bars by date and keeps the last bar of any duplicated day.
func sortBars(bars []models.PriceBar) []models.PriceBar {
	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func adjCloses(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AdjClose
	}
	return out
}
