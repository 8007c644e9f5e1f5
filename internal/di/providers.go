package di

import (
	"context"
	"fmt"
	"time"

	"StockDash/internal/domain/repository"
	dsvc "StockDash/internal/domain/service"
	"StockDash/internal/handler/api"
	"StockDash/internal/handler/ws"
	internalrepo "StockDash/internal/repository"
	"StockDash/internal/scheduler"
	"StockDash/internal/service/iex"
	"StockDash/internal/service/ratelimit"
	"StockDash/internal/service/yahoo"
	"StockDash/internal/services/analytics"
	"StockDash/internal/usecase"
	"StockDash/pkg/cache"
	pkgch "StockDash/pkg/clickhouse"
	"StockDash/pkg/config"
	xhttp "StockDash/pkg/http"
	pkgkafka "StockDash/pkg/kafka"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/metrics"
	"StockDash/pkg/server"
	xutil "StockDash/pkg/util"

	"github.com/sony/gobreaker"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "stockdash")), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the layered cache. Redis is used as L2 only when enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	var l2 *cache.RedisCache
	if cfg.Cache.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.KeyPrefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		l2 = rc
		l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	}
	return cache.NewLayeredCache(l2,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredL2ErrorHandler(func(op, key string, err error) {
			l.Warn("redis cache unavailable, serving from memory",
				applogger.String("op", op),
				applogger.String("key", key),
				applogger.Error(err),
			)
		}),
	), nil
}

// ProvideSecuritySource creates the reference-data client.
func ProvideSecuritySource(cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.SecuritySource {
	rd := cfg.Providers.ReferenceData
	hc := xhttp.NewClient(
		xhttp.WithTimeout(rd.Timeout),
		xhttp.WithHeader("User-Agent", rd.UserAgent),
		xhttp.WithRetry(cfg.Providers.MarketData.Retry.MaxAttempts,
			cfg.Providers.MarketData.Retry.MinBackoff, cfg.Providers.MarketData.Retry.MaxBackoff),
	)
	return iex.New(rd.URL, hc, m, l)
}

// ProvideBarProvider creates the market-data client with retry, rate limit and breaker.
func ProvideBarProvider(cfg *config.Config, m repository.Metrics, l *applogger.Logger) repository.BarProvider {
	md := cfg.Providers.MarketData
	opts := []xhttp.ClientOption{
		xhttp.WithTimeout(md.Timeout),
		xhttp.WithHeader("User-Agent", md.UserAgent),
		xhttp.WithRetry(md.Retry.MaxAttempts, md.Retry.MinBackoff, md.Retry.MaxBackoff),
	}
	if md.RateLimit.Enabled {
		opts = append(opts, xhttp.WithRateLimit(md.RateLimit.RPS, md.RateLimit.Burst))
	}
	if md.Breaker.Enabled {
		opts = append(opts, xhttp.WithBreaker("market_data", md.Breaker.FailureThreshold, md.Breaker.Interval, md.Breaker.OpenTimeout,
			func(name string, from, to gobreaker.State) {
				l.Warn("circuit breaker state change",
					applogger.String("breaker", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			}))
	}
	return yahoo.New(md.BaseURL, xhttp.NewClient(opts...), m, l)
}

// ProvideFitter creates the trend fitter.
func ProvideFitter() dsvc.TrendFitter {
	return analytics.NewOLSFitter()
}

// ProvideClickHouseClient connects to ClickHouse and creates the archive schema. Nil when archiving is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	ch := cfg.Archive.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + ch.Database}, internalrepo.BarSchema...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideBarArchive wraps the ClickHouse client. Nil when archiving is disabled.
func ProvideBarArchive(ch *pkgch.Client, l *applogger.Logger) repository.BarArchive {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHBarArchive(ch, l)
}

// ProvideKafkaProducer creates a Kafka producer. Nil when events are disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers),
		pkgkafka.WithCompression(cfg.Events.Compression),
		pkgkafka.WithRequiredAcks(cfg.Events.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Events.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Events.WriteTimeout),
		pkgkafka.WithAsync(cfg.Events.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes chart events to Kafka, or drops them when events are disabled.
func ProvideEventPublisher(p *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if p == nil {
		return internalrepo.NoopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(p, cfg.Events.Topic)
}

func ProvideSecuritiesUseCase(src repository.SecuritySource, c cache.Service, m repository.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.SecuritiesUseCase {
	return usecase.NewSecuritiesUseCase(src, c, cfg.Cache.SecuritiesTTL, cfg.Dashboard.RequestTimeout, m, l)
}

func ProvideSeriesUseCase(
	provider repository.BarProvider,
	fitter dsvc.TrendFitter,
	archive repository.BarArchive,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SeriesUseCase {
	return usecase.NewSeriesUseCase(provider, fitter, archive, c, usecase.SeriesConfig{
		TTL:     cfg.Cache.SeriesTTL,
		MinDate: cfg.MinDate(),
		Timeout: cfg.Dashboard.RequestTimeout,
	}, m, l)
}

func ProvideChartUseCase(series *usecase.SeriesUseCase, events repository.EventPublisher, l *applogger.Logger) *usecase.ChartUseCase {
	return usecase.NewChartUseCase(series, events, l)
}

// ProvideRateLimiter creates the per-client API limiter. Nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS <= 0 {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

func ProvideDashboardHandler(l *applogger.Logger, sec *usecase.SecuritiesUseCase, charts *usecase.ChartUseCase, limiter *ratelimit.Limiter) *api.DashboardEchoHandler {
	if limiter == nil {
		return api.NewDashboardEchoHandler(l, sec, charts, nil)
	}
	return api.NewDashboardEchoHandler(l, sec, charts, limiter)
}

// ProvideSessionHandler creates the /ws handler. Each session starts on the default symbol and window.
func ProvideSessionHandler(l *applogger.Logger, charts *usecase.ChartUseCase, cfg *config.Config) *ws.SessionHandler {
	symbol := cfg.Dashboard.DefaultSymbol
	return ws.NewSessionHandler(l, charts, func() usecase.SessionDefaults {
		start, end := xutil.DefaultWindow(time.Now())
		return usecase.SessionDefaults{Symbol: symbol, Start: start, End: end}
	}, 30*time.Second)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, dash *api.DashboardEchoHandler, sessions *ws.SessionHandler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{dash, sessions},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, 2*time.Second),
	)
}

// ProvideScheduler registers the periodic jobs. Nil when the scheduler is disabled.
func ProvideScheduler(cfg *config.Config, sec *usecase.SecuritiesUseCase, limiter *ratelimit.Limiter, l *applogger.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	var sweeper scheduler.Sweeper
	if limiter != nil {
		sweeper = limiter
	}
	s := scheduler.New(sec, sweeper, cfg.Dashboard.RequestTimeout, l)
	if err := s.Register(cfg.Scheduler.SecuritiesRefresh); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp creates the application and hooks error-log aggregation onto the events producer.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sched *scheduler.Scheduler,
	producer *pkgkafka.Producer,
	events repository.EventPublisher,
	archive repository.BarArchive,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Events.LogTopic,
			Publisher:      producer,
		})
	}

	closers := []server.Closer{{Name: "events", Close: events.Close}}
	if archive != nil {
		closers = append(closers, server.Closer{Name: "archive", Close: archive.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	closers = append(closers, server.Closer{Name: "cache", Close: c.Close})

	var s server.Scheduler
	if sched != nil {
		s = sched
	}
	return server.New(cfg, l, httpServer, s, closers...)
}
