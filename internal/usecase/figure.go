package usecase

import (
	"StockDash/internal/domain/models"
	xutil "StockDash/pkg/util"

	"github.com/samber/lo"
)

const trendTraceName = "Linear Regression"

// BuildFigure renders series as an OHLC trace, plus the trend line when showTrend is set.
func BuildFigure(series *models.EnrichedSeries, showTrend bool) models.Figure {
	dates := lo.Map(series.Bars, func(b models.PriceBar, _ int) string { return xutil.FormatDate(b.Date) })

	ohlc := models.Trace{
		Type:  "ohlc",
		Name:  series.Symbol,
		X:     dates,
		Open:  lo.Map(series.Bars, func(b models.PriceBar, _ int) float64 { return b.Open }),
		High:  lo.Map(series.Bars, func(b models.PriceBar, _ int) float64 { return b.High }),
		Low:   lo.Map(series.Bars, func(b models.PriceBar, _ int) float64 { return b.Low }),
		Close: lo.Map(series.Bars, func(b models.PriceBar, _ int) float64 { return b.Close }),
	}

	fig := models.Figure{
		Data: []models.Trace{ohlc},
		Layout: models.Layout{
			Title:     "OHLC Chart: " + series.Symbol,
			HoverMode: "closest",
			YAxis:     models.Axis{Title: "Stock Price ($)"},
			XAxis:     models.Axis{RangeSlider: &models.RangeSlider{Visible: false}},
		},
		Config: models.FigureConfig{
			ScrollZoom:     true,
			DisplayModeBar: true,
			Editable:       false,
		},
	}

	if showTrend {
		fig.Data = append(fig.Data, models.Trace{
			Type: "scatter",
			Mode: "lines",
			Name: trendTraceName,
			X:    dates,
			Y:    append([]float64(nil), series.Trend...),
		})
	}
	return fig
}
