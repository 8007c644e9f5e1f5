package service

import "context"

// TrendFitter fits a straight line over a value series indexed by ordinal position
// and returns the fitted value at every position.
type TrendFitter interface {
	FitTrend(ctx context.Context, values []float64) (TrendLine, error)
}

// TrendLine is y = Intercept + Slope*x evaluated at x = 0..len(Values)-1.
type TrendLine struct {
	Intercept float64
	Slope     float64
	Values    []float64
}
