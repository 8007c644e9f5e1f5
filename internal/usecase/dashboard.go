package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	applogger "StockDash/pkg/logger"
	xutil "StockDash/pkg/util"
)

// Dashboard inputs and outputs.
const (
	InputSecurity    = "security"
	InputDateRange   = "date-range"
	InputTrendToggle = "trend-toggle"

	OutputState  = "state"
	OutputSeries = "series"
	OutputFigure = "figure"
	OutputError  = "error"
)

// SeriesSource is what a session needs from the chart service.
type SeriesSource interface {
	Series(ctx context.Context, source string, req models.ChartRequest) (*SeriesResult, error)
}

// Output is one message for the client. Seq increases strictly within a session.
type Output struct {
	Name string
	Seq  uint64
	Data interface{}
	Err  error
}

// SessionDefaults seeds a new session.
type SessionDefaults struct {
	Symbol    string
	Start     time.Time
	End       time.Time
	ShowTrend bool
}

// SessionState is the current input values, sent once when the session starts.
type SessionState struct {
	Symbol    string `json:"symbol"`
	Start     string `json:"start"`
	End       string `json:"end"`
	ShowTrend bool   `json:"show_trend"`
}

// DateRange is the value of the date-range input.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Session holds one dashboard's state and routes inputs to the series and figure handlers.
//
//	security, date-range -> series -> figure
//	trend-toggle         -> figure (cached series, no fetch)
//
// A fetch-triggering input cancels the previous in-flight fetch, and a superseded fetch never emits.
type Session struct {
	src  SeriesSource
	emit func(Output)
	log  *applogger.Logger

	mu      sync.Mutex
	req     models.ChartRequest
	series  *models.EnrichedSeries
	gen     uint64 // fetch generation
	seq     uint64 // last emitted output
	cancel  context.CancelFunc
	running bool // fetch of the current generation not yet finished
	closed  bool
	pending sync.WaitGroup

	onSupersede func()
}

// NewSession creates a session. emit is called with the session lock held and must not block for long.
func NewSession(src SeriesSource, d SessionDefaults, emit func(Output), l *applogger.Logger) *Session {
	return &Session{
		src:  src,
		emit: emit,
		log:  l,
		req: models.ChartRequest{
			Symbol:    xutil.NormalizeSymbol(d.Symbol),
			Start:     d.Start,
			End:       d.End,
			ShowTrend: d.ShowTrend,
		},
	}
}

// OnSupersede registers f to be called whenever an input cancels a running fetch.
func (s *Session) OnSupersede(f func()) {
	s.mu.Lock()
	s.onSupersede = f
	s.mu.Unlock()
}

// Start announces the default state and runs the initial fetch for it.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(OutputState, SessionState{
		Symbol:    s.req.Symbol,
		Start:     xutil.FormatDate(s.req.Start),
		End:       xutil.FormatDate(s.req.End),
		ShowTrend: s.req.ShowTrend,
	}, nil)
	s.fetchLocked(ctx)
}

// Handle applies one named input.
func (s *Session) Handle(ctx context.Context, input string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}

	switch input {
	case InputSecurity:
		var symbol string
		if err := json.Unmarshal(value, &symbol); err != nil {
			return s.rejectLocked(fmt.Errorf("security must be a string: %w", domain.ErrInvalidRequest))
		}
		symbol = xutil.NormalizeSymbol(symbol)
		if symbol == "" {
			return s.rejectLocked(fmt.Errorf("security is empty: %w", domain.ErrInvalidRequest))
		}
		s.req.Symbol = symbol
		s.fetchLocked(ctx)

	case InputDateRange:
		var dr DateRange
		if err := json.Unmarshal(value, &dr); err != nil {
			return s.rejectLocked(fmt.Errorf("date-range must be {start, end}: %w", domain.ErrInvalidRequest))
		}
		start, okStart := xutil.ParseDate(dr.Start)
		end, okEnd := xutil.ParseDate(dr.End)
		if !okStart || !okEnd {
			return s.rejectLocked(fmt.Errorf("date-range needs YYYY-MM-DD dates: %w", domain.ErrInvalidRequest))
		}
		s.req.Start, s.req.End = start, end
		s.fetchLocked(ctx)

	case InputTrendToggle:
		var on bool
		if err := json.Unmarshal(value, &on); err != nil {
			return s.rejectLocked(fmt.Errorf("trend-toggle must be a boolean: %w", domain.ErrInvalidRequest))
		}
		s.req.ShowTrend = on
		if s.series != nil {
			s.emitLocked(OutputFigure, BuildFigure(s.series, on), nil)
		}

	default:
		return s.rejectLocked(fmt.Errorf("unknown input %q: %w", input, domain.ErrInvalidRequest))
	}
	return nil
}

// Close cancels any in-flight fetch and waits for it to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.pending.Wait()
}

func (s *Session) rejectLocked(err error) error {
	s.emitLocked(OutputError, nil, err)
	return err
}

func (s *Session) emitLocked(name string, data interface{}, err error) {
	s.seq++
	s.emit(Output{Name: name, Seq: s.seq, Data: data, Err: err})
}

func (s *Session) fetchLocked(parent context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.running {
		s.log.Debug("superseded in-flight fetch", applogger.String("symbol", s.req.Symbol))
		if s.onSupersede != nil {
			s.onSupersede()
		}
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.running = true
	s.gen++
	gen, req := s.gen, s.req

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		res, err := s.src.Series(ctx, "ws", req)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || s.closed {
			return
		}
		s.running = false
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			// the held series no longer matches the selected symbol and window
			s.series = nil
			s.emitLocked(OutputError, nil, err)
			return
		}
		s.series = res.Series
		s.emitLocked(OutputSeries, models.ToTransport(res.Series), nil)
		// the toggle may have changed while the fetch was running
		s.emitLocked(OutputFigure, BuildFigure(res.Series, s.req.ShowTrend), nil)
	}()
}

// Generation returns the number of fetches the session has started.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}
