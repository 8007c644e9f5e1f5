package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	drepo "StockDash/internal/domain/repository"
	"StockDash/internal/service/upstream"
	xhttp "StockDash/pkg/http"
	applogger "StockDash/pkg/logger"
	xutil "StockDash/pkg/util"
)

const name = "yahoo"

// Client implements BarProvider using the Yahoo Finance chart API.
type Client struct {
	baseURL string
	http    *xhttp.Client
	metrics drepo.Metrics
	log     *applogger.Logger
}

// New creates a market-data client rooted at baseURL (e.g. https://query1.finance.yahoo.com).
func New(baseURL string, hc *xhttp.Client, m drepo.Metrics, l *applogger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		metrics: m,
		log:     l,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			High  []*float64 `json:"high"`
			Low   []*float64 `json:"low"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// DailyBars returns the daily bars of symbol whose trading date falls in [start, end].
// Bars with any missing price are skipped.
func (c *Client) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	began := time.Now()
	bars, err := c.dailyBars(ctx, symbol, start, end)
	c.metrics.RecordUpstreamCall(name, upstream.Result(err), time.Since(began).Seconds())
	if err != nil {
		return nil, err
	}
	c.log.Debug("daily bars fetched",
		applogger.String("symbol", symbol),
		applogger.Date("start", start),
		applogger.Date("end", end),
		applogger.Int("bars", len(bars)),
		applogger.Duration("duration_ms", time.Since(began)),
	)
	return bars, nil
}

func (c *Client) dailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	start, end = xutil.TruncateDay(start), xutil.TruncateDay(end)
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"period1":              {strconv.FormatInt(start.Unix(), 10)},
			"period2":              {strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)}, // exclusive upstream
			"interval":             {"1d"},
			"includeAdjustedClose": {"true"},
			"events":               {"history"},
		},
	}

	var resp chartResponse
	if err := c.http.SendAndParse(ctx, opts, &resp); err != nil {
		if xhttp.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%s: symbol %q: %w", name, symbol, domain.ErrNotFound)
		}
		return nil, upstream.Classify(name, err)
	}

	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%s: symbol %q: %s: %w", name, symbol, e.Description, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %s: %s: %w", name, e.Code, e.Description, domain.ErrMalformedResponse)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: symbol %q: empty result: %w", name, symbol, domain.ErrNotFound)
	}
	return toBars(resp.Chart.Result[0], start, end)
}

func toBars(r chartResult, start, end time.Time) ([]models.PriceBar, error) {
	n := len(r.Timestamp)
	if n == 0 {
		return []models.PriceBar{}, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: no quote indicators: %w", name, domain.ErrMalformedResponse)
	}
	q := r.Indicators.Quote[0]
	adj := q.Close
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}
	for _, col := range [][]*float64{q.Open, q.High, q.Low, q.Close, adj} {
		if len(col) != n {
			return nil, fmt.Errorf("%s: indicator length %d does not match %d timestamps: %w",
				name, len(col), n, domain.ErrMalformedResponse)
		}
	}

	offset := time.Duration(r.Meta.GMTOffset) * time.Second
	bars := make([]models.PriceBar, 0, n)
	for i, ts := range r.Timestamp {
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil || adj[i] == nil {
			continue
		}
		day := xutil.TruncateDay(time.Unix(ts, 0).UTC().Add(offset))
		if day.Before(start) || day.After(end) {
			continue
		}
		bars = append(bars, models.PriceBar{
			Date:     day,
			Open:     *q.Open[i],
			High:     *q.High[i],
			Low:      *q.Low[i],
			Close:    *q.Close[i],
			AdjClose: *adj[i],
		})
	}
	return bars, nil
}
