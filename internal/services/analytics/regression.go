package analytics

import (
	"context"
	"fmt"
	"math"

	"StockDash/internal/domain"
	dsvc "StockDash/internal/domain/service"

	"gonum.org/v1/gonum/stat"
)

// OLSFitter fits ordinary least squares with x = 0..n-1 and evaluates the line at every x.
type OLSFitter struct{}

func NewOLSFitter() *OLSFitter { return &OLSFitter{} }

var _ dsvc.TrendFitter = (*OLSFitter)(nil)

// FitTrend returns the fitted line over values. A single value yields a flat line through it.
func (f *OLSFitter) FitTrend(_ context.Context, values []float64) (dsvc.TrendLine, error) {
	n := len(values)
	if n == 0 {
		return dsvc.TrendLine{}, fmt.Errorf("fit trend over empty series: %w", domain.ErrInsufficientData)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dsvc.TrendLine{}, fmt.Errorf("non-finite value at %d: %w", i, domain.ErrMalformedResponse)
		}
	}

	var alpha, beta float64
	if n == 1 {
		// gonum divides by the x variance, which is zero here
		alpha = values[0]
	} else {
		xs := make([]float64, n)
		for i := range xs {
			xs[i] = float64(i)
		}
		alpha, beta = stat.LinearRegression(xs, values, nil, false)
	}

	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = alpha + beta*float64(i)
	}
	return dsvc.TrendLine{Intercept: alpha, Slope: beta, Values: fitted}, nil
}
