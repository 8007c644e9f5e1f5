package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockDash/internal/domain/models"
	pkgch "StockDash/pkg/clickhouse"
	applogger "StockDash/pkg/logger"
)

const barsTable = "daily_bars"

// BarSchema creates the archive table. Re-fetched days replace older rows on merge.
var BarSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + barsTable + ` (
        symbol     LowCardinality(String),
        date       Date,
        open       Float64,
        high       Float64,
        low        Float64,
        close      Float64,
        adj_close  Float64,
        fetched_at DateTime64(3, 'UTC')
    ) ENGINE = ReplacingMergeTree(fetched_at)
    ORDER BY (symbol, date)`,
}

// CHBarArchive implements BarArchive backed by ClickHouse.
type CHBarArchive struct {
	db  *sql.DB
	l   *applogger.Logger
	now func() time.Time
}

func NewCHBarArchive(ch *pkgch.Client, l *applogger.Logger) *CHBarArchive {
	return newCHBarArchive(ch.DB(), l)
}

func newCHBarArchive(db *sql.DB, l *applogger.Logger) *CHBarArchive {
	return &CHBarArchive{db: db, l: l, now: time.Now}
}

// Save inserts bars in chunks of multi-row VALUES.
func (s *CHBarArchive) Save(ctx context.Context, symbol string, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	began := s.now()
	fetched := began.UTC()

	const chunkSize = 1000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose, fetched)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, adj_close, fetched_at) VALUES %s",
			barsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_bars error",
				applogger.String("symbol", symbol),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("save bars: %w", err)
		}
	}

	s.l.Debug("clickhouse save_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", s.now().Sub(began)),
	)
	return nil
}

// Load returns archived bars of symbol within [start, end], ascending by date.
func (s *CHBarArchive) Load(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	began := s.now()
	const q = `
        SELECT date, open, high, low, close, adj_close
        FROM ` + barsTable + ` FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, start, end)
	if err != nil {
		s.l.Error("clickhouse load_bars query error", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("load bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 256)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse load_bars ok",
		applogger.String("symbol", symbol),
		applogger.Date("from", start),
		applogger.Date("to", end),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", s.now().Sub(began)),
	)
	return out, nil
}

// Close is a no-op; the connection pool belongs to the clickhouse client.
func (s *CHBarArchive) Close() error { return nil }
