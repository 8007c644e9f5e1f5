package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	"StockDash/internal/usecase"
	xlogger "StockDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct{}

func (stubSource) Series(_ context.Context, _ string, req models.ChartRequest) (*usecase.SeriesResult, error) {
	if req.Symbol == "ZZZZZZ" {
		return nil, domain.ErrNotFound
	}
	series := &models.EnrichedSeries{
		Symbol: req.Symbol,
		Bars:   []models.PriceBar{{Date: req.Start, Open: 1, High: 1, Low: 1, Close: 1, AdjClose: 1}},
		Trend:  []float64{1},
	}
	return &usecase.SeriesResult{Series: series, Start: req.Start, End: req.End}, nil
}

type wireMessage struct {
	Output string          `json:"output"`
	Seq    uint64          `json:"seq"`
	Data   json.RawMessage `json:"data"`
	Error  *wireError      `json:"error"`
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	h := NewSessionHandler(xlogger.NewNop(), stubSource{}, func() usecase.SessionDefaults {
		return usecase.SessionDefaults{
			Symbol: "NVDA",
			Start:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		}
	}, time.Second)
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m wireMessage
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestSessionOverWebSocket(t *testing.T) {
	conn := dial(t)

	state := read(t, conn)
	assert.Equal(t, "state", state.Output)
	assert.JSONEq(t, `{"symbol":"NVDA","start":"2024-01-02","end":"2024-01-31","show_trend":false}`, string(state.Data))
	assert.Equal(t, "series", read(t, conn).Output)
	fig := read(t, conn)
	assert.Equal(t, "figure", fig.Output)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"input": "trend-toggle", "value": true}))
	toggled := read(t, conn)
	assert.Equal(t, "figure", toggled.Output)
	assert.Greater(t, toggled.Seq, fig.Seq)

	var f models.Figure
	require.NoError(t, json.Unmarshal(toggled.Data, &f))
	assert.Len(t, f.Data, 2)
}

func TestSessionErrorsOverWebSocket(t *testing.T) {
	conn := dial(t)
	for i := 0; i < 3; i++ {
		read(t, conn)
	}

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"input": "security", "value": "ZZZZZZ"}))
	msg := read(t, conn)
	assert.Equal(t, "error", msg.Output)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "not_found", msg.Error.Code)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"input": "volume", "value": 1}))
	msg = read(t, conn)
	assert.Equal(t, "error", msg.Output)
	assert.Equal(t, "invalid_request", msg.Error.Code)
}
