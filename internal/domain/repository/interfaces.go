package repository

import (
	"context"
	"time"

	"StockDash/internal/domain/models"
)

// SecuritySource lists the tradable symbol universe from reference data.
type SecuritySource interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// BarProvider returns daily bars for symbol over the inclusive window [start, end].
type BarProvider interface {
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// BarArchive persists fetched bars and serves them back when the provider is unreachable.
type BarArchive interface {
	Save(ctx context.Context, symbol string, bars []models.PriceBar) error
	Load(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
	Close() error
}

// EventPublisher ships chart events to an external sink.
type EventPublisher interface {
	PublishChartEvent(ctx context.Context, ev models.ChartEvent) error
	Close() error
}

type Metrics interface {
	RecordUpstreamCall(upstream, result string, seconds float64)
	RecordCache(kind string, hit bool)
	RecordBarsServed(n int)
	RecordError(kind string)
}
