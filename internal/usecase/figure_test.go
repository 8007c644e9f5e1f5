package usecase

import (
	"encoding/json"
	"testing"

	"StockDash/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() *models.EnrichedSeries {
	return &models.EnrichedSeries{
		Symbol: "TEST",
		Bars:   []models.PriceBar{bar("2024-01-02", 10), bar("2024-01-03", 20)},
		Trend:  []float64{10, 20},
	}
}

func TestBuildFigureWithoutTrend(t *testing.T) {
	fig := BuildFigure(testSeries(), false)

	require.Len(t, fig.Data, 1)
	ohlc := fig.Data[0]
	assert.Equal(t, "ohlc", ohlc.Type)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, ohlc.X)
	assert.Equal(t, []float64{9, 19}, ohlc.Open)
	assert.Equal(t, []float64{11, 21}, ohlc.High)
	assert.Equal(t, []float64{8, 18}, ohlc.Low)
	assert.Equal(t, []float64{10, 20}, ohlc.Close)

	assert.Equal(t, "OHLC Chart: TEST", fig.Layout.Title)
	assert.Equal(t, "closest", fig.Layout.HoverMode)
	assert.Equal(t, "Stock Price ($)", fig.Layout.YAxis.Title)
	require.NotNil(t, fig.Layout.XAxis.RangeSlider)
	assert.False(t, fig.Layout.XAxis.RangeSlider.Visible)
	assert.Equal(t, models.FigureConfig{ScrollZoom: true, DisplayModeBar: true}, fig.Config)
}

func TestBuildFigureWithTrend(t *testing.T) {
	fig := BuildFigure(testSeries(), true)

	require.Len(t, fig.Data, 2)
	line := fig.Data[1]
	assert.Equal(t, "scatter", line.Type)
	assert.Equal(t, "lines", line.Mode)
	assert.Equal(t, "Linear Regression", line.Name)
	assert.Equal(t, fig.Data[0].X, line.X)
	assert.Equal(t, []float64{10, 20}, line.Y)
}

func TestBuildFigureJSON(t *testing.T) {
	raw, err := json.Marshal(BuildFigure(testSeries(), false))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	layout := doc["layout"].(map[string]any)
	xaxis := layout["xaxis"].(map[string]any)
	assert.Equal(t, map[string]any{"visible": false}, xaxis["rangeslider"])
	assert.Equal(t, false, doc["config"].(map[string]any)["editable"])
}
