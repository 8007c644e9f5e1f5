package models

import (
	"fmt"
	"math"
	"time"

	"StockDash/internal/domain"
)

// PriceBar is one daily OHLC bar. Date is a calendar day at UTC midnight.
type PriceBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
}

// EnrichedSeries is a bar sequence with a parallel fitted trend value per bar.
// Bars are strictly ascending by date and len(Trend) == len(Bars).
type EnrichedSeries struct {
	Symbol string
	Bars   []PriceBar
	Trend  []float64
}

// Len returns the number of bars.
func (s *EnrichedSeries) Len() int { return len(s.Bars) }

// AdjCloses returns the adjusted close column.
func (s *EnrichedSeries) AdjCloses() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.AdjClose
	}
	return out
}

// Validate checks the series invariants.
func (s *EnrichedSeries) Validate() error {
	if len(s.Trend) != len(s.Bars) {
		return fmt.Errorf("%w: %d trend values for %d bars", domain.ErrMalformedResponse, len(s.Trend), len(s.Bars))
	}
	for i, b := range s.Bars {
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%w: bar %d date %s not after %s", domain.ErrMalformedResponse, i,
				b.Date.Format("2006-01-02"), s.Bars[i-1].Date.Format("2006-01-02"))
		}
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close, b.AdjClose, s.Trend[i]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value in bar %d", domain.ErrMalformedResponse, i)
			}
		}
	}
	return nil
}

// ChartRequest is one user interaction: which security, which window, trend on/off.
type ChartRequest struct {
	Symbol    string
	Start     time.Time
	End       time.Time
	ShowTrend bool
}
