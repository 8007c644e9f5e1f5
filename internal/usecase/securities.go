package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"StockDash/internal/domain/models"
	domrepo "StockDash/internal/domain/repository"
	"StockDash/pkg/cache"
	applogger "StockDash/pkg/logger"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

var securitiesCacheKey = cache.GenerateKey("securities", "v1")

// SecuritiesUseCase lists the selectable securities, cached and de-duplicated by symbol.
type SecuritiesUseCase struct {
	source  domrepo.SecuritySource
	cache   cache.Service
	ttl     time.Duration
	timeout time.Duration
	metrics domrepo.Metrics
	log     *applogger.Logger

	group singleflight.Group
}

func NewSecuritiesUseCase(source domrepo.SecuritySource, c cache.Service, ttl, timeout time.Duration, m domrepo.Metrics, l *applogger.Logger) *SecuritiesUseCase {
	return &SecuritiesUseCase{source: source, cache: c, ttl: ttl, timeout: timeout, metrics: m, log: l}
}

// ListSecurities returns the option set sorted by symbol.
func (uc *SecuritiesUseCase) ListSecurities(ctx context.Context) ([]models.SecurityOption, error) {
	cached, err := cache.GetTyped[[]models.SecurityOption](ctx, uc.cache, securitiesCacheKey)
	uc.metrics.RecordCache("securities", err == nil)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		uc.log.Warn("securities cache read failed", applogger.Error(err))
	}
	return uc.load(ctx)
}

// Refresh bypasses the cache, reloads from the source and stores the result.
func (uc *SecuritiesUseCase) Refresh(ctx context.Context) ([]models.SecurityOption, error) {
	return uc.load(ctx)
}

func (uc *SecuritiesUseCase) load(ctx context.Context) ([]models.SecurityOption, error) {
	ch := uc.group.DoChan(securitiesCacheKey, func() (interface{}, error) {
		fctx, cancel := detached(ctx, uc.timeout)
		defer cancel()

		symbols, err := uc.source.ListSymbols(fctx)
		if err != nil {
			uc.metrics.RecordError("securities")
			return nil, fmt.Errorf("list securities: %w", err)
		}
		opts := toOptions(symbols)
		if err := uc.cache.Set(fctx, securitiesCacheKey, opts, uc.ttl); err != nil {
			uc.log.Warn("securities cache write failed", applogger.Error(err))
		}
		uc.log.Info("securities loaded",
			applogger.Int("upstream", len(symbols)),
			applogger.Int("unique", len(opts)),
		)
		return opts, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.SecurityOption), nil
	}
}

func toOptions(symbols []string) []models.SecurityOption {
	unique := lo.Uniq(symbols)
	sort.Strings(unique)
	return lo.Map(unique, func(s string, _ int) models.SecurityOption {
		return models.SecurityOption{Symbol: s, Label: s}
	})
}

// detached returns a context that survives the caller's cancellation, bounded by timeout.
// Coalesced fetches run under it.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, timeout)
}
