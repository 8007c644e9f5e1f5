package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	"StockDash/internal/services/analytics"
	"StockDash/pkg/cache"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/metrics"
)

var testNow = time.Date(2024, 6, 14, 15, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date string, adj float64) models.PriceBar {
	return models.PriceBar{Date: day(date), Open: adj - 1, High: adj + 1, Low: adj - 2, Close: adj, AdjClose: adj}
}

type fakeProvider struct {
	calls int32
	bars  map[string][]models.PriceBar
	err   error
	block chan struct{} // when set, DailyBars waits on it or ctx
}

func (p *fakeProvider) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	bars, ok := p.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrNotFound)
	}
	return bars, nil
}

func (p *fakeProvider) Calls() int { return int(atomic.LoadInt32(&p.calls)) }

type fakeArchive struct {
	mu    sync.Mutex
	saved map[string][]models.PriceBar
}

func newFakeArchive() *fakeArchive { return &fakeArchive{saved: map[string][]models.PriceBar{}} }

func (a *fakeArchive) Save(_ context.Context, symbol string, bars []models.PriceBar) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved[symbol] = append([]models.PriceBar(nil), bars...)
	return nil
}

func (a *fakeArchive) Load(_ context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.PriceBar
	for _, b := range a.saved[symbol] {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (a *fakeArchive) Close() error { return nil }

type fakeEvents struct {
	mu     sync.Mutex
	events []models.ChartEvent
	err    error
}

func (e *fakeEvents) PublishChartEvent(_ context.Context, ev models.ChartEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return e.err
}

func (e *fakeEvents) Close() error { return nil }

func (e *fakeEvents) All() []models.ChartEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ChartEvent(nil), e.events...)
}

func newSeriesUseCase(t *testing.T, p *fakeProvider, archive *fakeArchive) *SeriesUseCase {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })

	var a domrepo.BarArchive
	if archive != nil {
		a = archive
	}
	uc := NewSeriesUseCase(p, analytics.NewOLSFitter(), a, c, SeriesConfig{
		TTL:     time.Minute,
		MinDate: day("2008-01-01"),
		Timeout: 5 * time.Second,
	}, metrics.Nop{}, applogger.NewNop())
	uc.now = func() time.Time { return testNow }
	return uc
}
