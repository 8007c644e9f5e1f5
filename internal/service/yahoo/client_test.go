package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"StockDash/internal/domain"
	xhttp "StockDash/pkg/http"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Timestamps are 13:30 UTC (market open, New York) with a -4h exchange offset.
const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"TEST","gmtoffset":-14400},
  "timestamp":[1704807000,1704893400,1704979800,1705066200],
  "indicators":{
	"quote":[{"open":[1,2,null,4],"high":[1.5,2.5,null,4.5],"low":[0.5,1.5,null,3.5],"close":[1.2,2.2,null,4.2]}],
	"adjclose":[{"adjclose":[10,20,null,30]}]
  }}],"error":null}}`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc := xhttp.NewClient(xhttp.WithRetry(3, time.Millisecond, time.Millisecond))
	return New(srv.URL+"/", hc, metrics.Nop{}, applogger.NewNop())
}

func day(s string) time.Time {
	t, _ := time.ParseInLocation("2006-01-02", s, time.UTC)
	return t
}

func TestDailyBars(t *testing.T) {
	var query string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/TEST", r.URL.Path)
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(chartBody))
	})

	bars, err := c.DailyBars(context.Background(), "TEST", day("2024-01-09"), day("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, day("2024-01-09"), bars[0].Date)
	assert.Equal(t, day("2024-01-10"), bars[1].Date)
	assert.Equal(t, day("2024-01-12"), bars[2].Date)
	assert.Equal(t, []float64{10, 20, 30}, []float64{bars[0].AdjClose, bars[1].AdjClose, bars[2].AdjClose})
	assert.Equal(t, 4.5, bars[2].High)

	// period2 is exclusive upstream, so the end day is pushed by one
	assert.Contains(t, query, "period2="+strconv.FormatInt(day("2024-01-13").Unix(), 10))
	assert.Contains(t, query, "interval=1d")
}

func TestDailyBarsTrimsToWindow(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	})

	bars, err := c.DailyBars(context.Background(), "TEST", day("2024-01-10"), day("2024-01-11"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, day("2024-01-10"), bars[0].Date)
}

func TestDailyBarsUnknownSymbol(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	bars, err := c.DailyBars(context.Background(), "ZZZZZZ", day("2024-01-01"), day("2024-02-01"))
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, bars)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDailyBarsErrorInBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"delisted"}}}`))
	})

	_, err := c.DailyBars(context.Background(), "GONE", day("2024-01-01"), day("2024-02-01"))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDailyBarsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        `<html></html>`,
		"length mismatch": `{"chart":{"result":[{"timestamp":[1,2],"indicators":{"quote":[{"open":[1],"high":[1],"low":[1],"close":[1]}]}}]}}`,
		"no quote":        `{"chart":{"result":[{"timestamp":[1],"indicators":{"quote":[]}}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.DailyBars(context.Background(), "TEST", day("1970-01-01"), day("1970-01-02"))
			require.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestDailyBarsRetriesThenReportsNetworkError(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.DailyBars(context.Background(), "TEST", day("2024-01-01"), day("2024-02-01"))
	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestDailyBarsEmptyWindow(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"TEST"},"indicators":{"quote":[{}],"adjclose":[{}]}}],"error":null}}`))
	})

	bars, err := c.DailyBars(context.Background(), "TEST", day("2024-01-06"), day("2024-01-07"))
	require.NoError(t, err)
	assert.Empty(t, bars)
}
