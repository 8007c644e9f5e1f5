package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockDash/internal/domain"
	"StockDash/internal/domain/models"
	"StockDash/pkg/cache"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   int32
	symbols []string
	err     error
	block   chan struct{}
}

func (s *fakeSource) ListSymbols(ctx context.Context) ([]string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.symbols, s.err
}

func newSecuritiesUseCase(t *testing.T, src *fakeSource) *SecuritiesUseCase {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	return NewSecuritiesUseCase(src, c, time.Hour, time.Second, metrics.Nop{}, applogger.NewNop())
}

func TestListSecuritiesDeduplicatesAndSorts(t *testing.T) {
	src := &fakeSource{symbols: []string{"MSFT", "AAPL", "NVDA", "AAPL"}}
	opts, err := newSecuritiesUseCase(t, src).ListSecurities(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.SecurityOption{
		{Symbol: "AAPL", Label: "AAPL"},
		{Symbol: "MSFT", Label: "MSFT"},
		{Symbol: "NVDA", Label: "NVDA"},
	}, opts)
}

func TestListSecuritiesCached(t *testing.T) {
	src := &fakeSource{symbols: []string{"A", "B"}}
	uc := newSecuritiesUseCase(t, src)
	ctx := context.Background()

	_, err := uc.ListSecurities(ctx)
	require.NoError(t, err)
	opts, err := uc.ListSecurities(ctx)
	require.NoError(t, err)
	assert.Len(t, opts, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.calls))

	src.symbols = []string{"A", "B", "C"}
	opts, err = uc.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, opts, 3)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.calls))
}

func TestListSecuritiesEmpty(t *testing.T) {
	opts, err := newSecuritiesUseCase(t, &fakeSource{}).ListSecurities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestListSecuritiesErrorNotCached(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("iex: %w", domain.ErrMalformedResponse)}
	uc := newSecuritiesUseCase(t, src)

	_, err := uc.ListSecurities(context.Background())
	require.True(t, errors.Is(err, domain.ErrMalformedResponse))

	src.err, src.symbols = nil, []string{"A"}
	opts, err := uc.ListSecurities(context.Background())
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}

func TestListSecuritiesCoalescesConcurrentCallers(t *testing.T) {
	src := &fakeSource{symbols: []string{"B", "A"}, block: make(chan struct{})}
	uc := newSecuritiesUseCase(t, src)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]models.SecurityOption, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = uc.ListSecurities(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&src.calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.block)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&src.calls))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []models.SecurityOption{{Symbol: "A", Label: "A"}, {Symbol: "B", Label: "B"}}, results[i])
	}
}
