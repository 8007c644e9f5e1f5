package iex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockDash/internal/domain"
	drepo "StockDash/internal/domain/repository"
	"StockDash/internal/service/upstream"
	xhttp "StockDash/pkg/http"
	applogger "StockDash/pkg/logger"
)

const name = "iex"

// Client implements SecuritySource backed by the IEX reference-data symbols endpoint.
type Client struct {
	url     string
	http    *xhttp.Client
	metrics drepo.Metrics
	log     *applogger.Logger
}

// New creates a reference-data client. url is the full symbols endpoint.
func New(url string, hc *xhttp.Client, m drepo.Metrics, l *applogger.Logger) *Client {
	return &Client{url: url, http: hc, metrics: m, log: l}
}

type symbolRecord struct {
	Symbol *string `json:"symbol"`
}

// ListSymbols returns every symbol in the payload, in upstream order.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	start := time.Now()
	symbols, err := c.listSymbols(ctx)
	c.metrics.RecordUpstreamCall(name, upstream.Result(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	c.log.Debug("reference data fetched",
		applogger.Int("symbols", len(symbols)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return symbols, nil
}

func (c *Client) listSymbols(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: c.url}, &raw); err != nil {
		return nil, upstream.Classify(name, err)
	}
	return decodeSymbols(raw)
}

func decodeSymbols(raw []byte) ([]string, error) {
	var records []symbolRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%s: expected an array of symbol records: %w", name, domain.ErrMalformedResponse)
	}
	if records == nil {
		return nil, fmt.Errorf("%s: null payload: %w", name, domain.ErrMalformedResponse)
	}

	out := make([]string, 0, len(records))
	for i, r := range records {
		if r.Symbol == nil || *r.Symbol == "" {
			return nil, fmt.Errorf("%s: record %d has no symbol: %w", name, i, domain.ErrMalformedResponse)
		}
		out = append(out, *r.Symbol)
	}
	return out, nil
}
