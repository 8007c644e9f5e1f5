package models

import (
	"fmt"

	"StockDash/internal/domain"
	xutil "StockDash/pkg/util"
)

// SeriesRecord is the wire form of EnrichedSeries handed to the presentation layer.
type SeriesRecord struct {
	Symbol  string      `json:"symbol"`
	EODData []BarRecord `json:"eod_data"`
	Dates   []string    `json:"dates"`
}

// BarRecord is one row of SeriesRecord.EODData. The date lives in the parallel Dates list.
type BarRecord struct {
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Trend    float64 `json:"trend"`
}

// ToTransport converts a series into its wire record.
func ToTransport(s *EnrichedSeries) SeriesRecord {
	rec := SeriesRecord{
		Symbol:  s.Symbol,
		EODData: make([]BarRecord, len(s.Bars)),
		Dates:   make([]string, len(s.Bars)),
	}
	for i, b := range s.Bars {
		var trend float64
		if i < len(s.Trend) {
			trend = s.Trend[i]
		}
		rec.EODData[i] = BarRecord{
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			AdjClose: b.AdjClose,
			Trend:    trend,
		}
		rec.Dates[i] = xutil.FormatDate(b.Date)
	}
	return rec
}

// FromTransport rebuilds a series from its wire record, validating the schema.
func FromTransport(rec SeriesRecord) (*EnrichedSeries, error) {
	if len(rec.Dates) != len(rec.EODData) {
		return nil, fmt.Errorf("%w: %d dates for %d bars", domain.ErrMalformedResponse, len(rec.Dates), len(rec.EODData))
	}
	s := &EnrichedSeries{
		Symbol: rec.Symbol,
		Bars:   make([]PriceBar, len(rec.EODData)),
		Trend:  make([]float64, len(rec.EODData)),
	}
	for i, r := range rec.EODData {
		d, ok := xutil.ParseDate(rec.Dates[i])
		if !ok {
			return nil, fmt.Errorf("%w: bad date %q at %d", domain.ErrMalformedResponse, rec.Dates[i], i)
		}
		s.Bars[i] = PriceBar{
			Date:     d,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			AdjClose: r.AdjClose,
		}
		s.Trend[i] = r.Trend
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
