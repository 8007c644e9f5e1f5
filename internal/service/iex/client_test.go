package iex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StockDash/internal/domain"
	xhttp "StockDash/pkg/http"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "symbol", r.URL.Query().Get("filter"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	hc := xhttp.NewClient(xhttp.WithRetry(2, time.Millisecond, time.Millisecond))
	return New(srv.URL+"/ref-data/symbols?filter=symbol", hc, metrics.Nop{}, applogger.NewNop())
}

func TestListSymbols(t *testing.T) {
	c := serve(t, http.StatusOK, `[{"symbol":"A"},{"symbol":"AAPL"},{"symbol":"A"}]`)

	got, err := c.ListSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "AAPL", "A"}, got)
}

func TestListSymbolsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"object":         `{"symbol":"A"}`,
		"missing symbol": `[{"symbol":"A"},{"name":"x"}]`,
		"empty symbol":   `[{"symbol":""}]`,
		"not json":       `<html>`,
		"null":           `null`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := serve(t, http.StatusOK, body).ListSymbols(context.Background())
			assert.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestListSymbolsServerError(t *testing.T) {
	_, err := serve(t, http.StatusBadGateway, "").ListSymbols(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}
