package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	applogger "StockDash/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource answers Series per symbol. Symbols listed in hold wait for ctx cancellation.
type scriptedSource struct {
	mu       sync.Mutex
	requests []models.ChartRequest
	canceled []string
	hold     map[string]bool
}

func (s *scriptedSource) Series(ctx context.Context, _ string, req models.ChartRequest) (*SeriesResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	hold := s.hold[req.Symbol]
	s.mu.Unlock()

	if hold {
		<-ctx.Done()
		s.mu.Lock()
		s.canceled = append(s.canceled, req.Symbol)
		s.mu.Unlock()
		return nil, ctx.Err()
	}
	if req.Symbol == "ZZZZZZ" {
		return nil, domain.ErrNotFound
	}
	series := &models.EnrichedSeries{
		Symbol: req.Symbol,
		Bars:   []models.PriceBar{bar("2024-01-02", 1), bar("2024-01-03", 2)},
		Trend:  []float64{1, 2},
	}
	return &SeriesResult{Series: series, Start: req.Start, End: req.End}, nil
}

func (s *scriptedSource) Requests() []models.ChartRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChartRequest(nil), s.requests...)
}

type recorder struct {
	mu  sync.Mutex
	out []Output
}

func (r *recorder) emit(o Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, o)
}

func (r *recorder) All() []Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Output(nil), r.out...)
}

func (r *recorder) waitFor(t *testing.T, n int) []Output {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.All()) >= n }, time.Second, time.Millisecond)
	return r.All()
}

func newTestSession(t *testing.T, src SeriesSource) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewSession(src, SessionDefaults{
		Symbol: "nvda",
		Start:  day("2023-06-13"),
		End:    day("2024-06-13"),
	}, rec.emit, applogger.NewNop())
	t.Cleanup(s.Close)
	return s, rec
}

func TestSessionStartEmitsStateSeriesFigure(t *testing.T) {
	src := &scriptedSource{}
	s, rec := newTestSession(t, src)
	s.Start(context.Background())

	out := rec.waitFor(t, 3)
	assert.Equal(t, OutputState, out[0].Name)
	assert.Equal(t, SessionState{Symbol: "NVDA", Start: "2023-06-13", End: "2024-06-13"}, out[0].Data)
	assert.Equal(t, OutputSeries, out[1].Name)
	assert.Equal(t, OutputFigure, out[2].Name)
	assert.Equal(t, "NVDA", out[1].Data.(models.SeriesRecord).Symbol)
	assert.Len(t, out[2].Data.(models.Figure).Data, 1)
	assert.Less(t, out[0].Seq, out[1].Seq)
	assert.Less(t, out[1].Seq, out[2].Seq)
}

func TestSessionToggleDoesNotRefetch(t *testing.T) {
	src := &scriptedSource{}
	s, rec := newTestSession(t, src)
	ctx := context.Background()
	s.Start(ctx)
	rec.waitFor(t, 3)

	require.NoError(t, s.Handle(ctx, InputTrendToggle, json.RawMessage(`true`)))
	out := rec.All()
	require.Len(t, out, 4)
	assert.Equal(t, OutputFigure, out[3].Name)
	assert.Len(t, out[3].Data.(models.Figure).Data, 2)

	require.NoError(t, s.Handle(ctx, InputTrendToggle, json.RawMessage(`false`)))
	out = rec.All()
	require.Len(t, out, 5)
	assert.Len(t, out[4].Data.(models.Figure).Data, 1)

	assert.Len(t, src.Requests(), 1)
}

func TestSessionDateRange(t *testing.T) {
	src := &scriptedSource{}
	s, rec := newTestSession(t, src)
	ctx := context.Background()
	s.Start(ctx)
	rec.waitFor(t, 3)

	require.NoError(t, s.Handle(ctx, InputDateRange, json.RawMessage(`{"start":"2024-01-01","end":"2024-02-01"}`)))
	rec.waitFor(t, 5)

	reqs := src.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, day("2024-01-01"), reqs[1].Start)
	assert.Equal(t, day("2024-02-01"), reqs[1].End)
	assert.Equal(t, "NVDA", reqs[1].Symbol)
}

func TestSessionSupersededFetchIsCanceled(t *testing.T) {
	src := &scriptedSource{hold: map[string]bool{"SLOW": true}}
	s, rec := newTestSession(t, src)
	ctx := context.Background()
	superseded := 0
	s.OnSupersede(func() { superseded++ })

	require.NoError(t, s.Handle(ctx, InputSecurity, json.RawMessage(`"slow"`)))
	require.Eventually(t, func() bool { return len(src.Requests()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Handle(ctx, InputSecurity, json.RawMessage(`"AAPL"`)))
	out := rec.waitFor(t, 2)

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.canceled) == 1
	}, time.Second, time.Millisecond)

	for _, o := range out {
		assert.NotEqual(t, OutputError, o.Name)
	}
	assert.Equal(t, "AAPL", out[0].Data.(models.SeriesRecord).Symbol)
	assert.Len(t, rec.All(), 2)
	assert.Equal(t, 1, superseded)
}

func TestSessionErrors(t *testing.T) {
	src := &scriptedSource{}
	s, rec := newTestSession(t, src)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, InputSecurity, json.RawMessage(`"ZZZZZZ"`)))
	out := rec.waitFor(t, 1)
	assert.Equal(t, OutputError, out[0].Name)
	assert.ErrorIs(t, out[0].Err, domain.ErrNotFound)

	err := s.Handle(ctx, InputDateRange, json.RawMessage(`{"start":"nope","end":"2024-01-01"}`))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	err = s.Handle(ctx, "volume", json.RawMessage(`1`))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	err = s.Handle(ctx, InputSecurity, json.RawMessage(`""`))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	out = rec.All()
	require.Len(t, out, 4)
	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i].Seq, out[i-1].Seq)
	}
	assert.Len(t, src.Requests(), 1)
}

func TestSessionToggleAfterFailedFetchRendersNothing(t *testing.T) {
	src := &scriptedSource{}
	s, rec := newTestSession(t, src)
	ctx := context.Background()
	s.Start(ctx)
	rec.waitFor(t, 3)

	require.NoError(t, s.Handle(ctx, InputSecurity, json.RawMessage(`"ZZZZZZ"`)))
	out := rec.waitFor(t, 4)
	assert.Equal(t, OutputError, out[3].Name)

	require.NoError(t, s.Handle(ctx, InputTrendToggle, json.RawMessage(`true`)))
	assert.Len(t, rec.All(), 4)
}

func TestSessionToggleBeforeFirstSeries(t *testing.T) {
	s, rec := newTestSession(t, &scriptedSource{})
	require.NoError(t, s.Handle(context.Background(), InputTrendToggle, json.RawMessage(`true`)))
	assert.Empty(t, rec.All())
}

func TestSessionClose(t *testing.T) {
	src := &scriptedSource{hold: map[string]bool{"NVDA": true}}
	s, rec := newTestSession(t, src)
	s.Start(context.Background())
	require.Eventually(t, func() bool { return len(src.Requests()) == 1 }, time.Second, time.Millisecond)

	s.Close()
	out := rec.All()
	require.Len(t, out, 1)
	assert.Equal(t, OutputState, out[0].Name)
	assert.Error(t, s.Handle(context.Background(), InputTrendToggle, json.RawMessage(`true`)))
}
