package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	xutil "StockDash/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8050" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Dashboard struct {
		DefaultSymbol  string        `yaml:"default_symbol" default:"NVDA" validate:"required"`
		MinDate        string        `yaml:"min_date" default:"2008-01-01" validate:"datetime=2006-01-02"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"20s"`
	} `yaml:"dashboard"`
	Providers struct {
		ReferenceData struct {
			URL       string        `yaml:"url" default:"https://api.iextrading.com/1.0/ref-data/symbols?filter=symbol" validate:"required,url"`
			Timeout   time.Duration `yaml:"timeout" default:"10s"`
			UserAgent string        `yaml:"user_agent" default:"StockDash/1.0"`
		} `yaml:"reference_data"`
		MarketData struct {
			BaseURL   string          `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"required,url"`
			Timeout   time.Duration   `yaml:"timeout" default:"10s"`
			UserAgent string          `yaml:"user_agent" default:"Mozilla/5.0 (compatible; StockDash/1.0)"`
			Retry     RetryConfig     `yaml:"retry"`
			Breaker   BreakerConfig   `yaml:"breaker"`
			RateLimit RateLimitConfig `yaml:"rate_limit"`
		} `yaml:"market_data"`
	} `yaml:"providers"`
	Cache struct {
		SecuritiesTTL time.Duration `yaml:"securities_ttl" default:"24h"`
		SeriesTTL     time.Duration `yaml:"series_ttl" default:"15m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000" validate:"gte=0"`
		KeyPrefix     string        `yaml:"key_prefix" default:"stockdash"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Scheduler struct {
		Enabled           bool   `yaml:"enabled" default:"true"`
		SecuritiesRefresh string `yaml:"securities_refresh" default:"0 0 */6 * * *"`
	} `yaml:"scheduler"`
	Archive struct {
		Enabled    bool `yaml:"enabled"`
		ClickHouse struct {
			Host         string        `yaml:"host" default:"localhost"`
			Port         int           `yaml:"port" default:"9000"`
			Database     string        `yaml:"database" default:"stockdash"`
			User         string        `yaml:"user" default:"default"`
			Password     string        `yaml:"password"`
			UseHTTP      bool          `yaml:"use_http"`
			AsyncInsert  bool          `yaml:"async_insert"`
			WaitForAsync bool          `yaml:"wait_for_async_insert" default:"true"`
			DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"clickhouse"`
	} `yaml:"archive"`
	Events struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"stockdash.chart-events"`
		LogTopic     string        `yaml:"log_topic" default:"stockdash.logs"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Async        bool          `yaml:"async" default:"true"`
	} `yaml:"events"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
	MinBackoff  time.Duration `yaml:"min_backoff" default:"200ms"`
	MaxBackoff  time.Duration `yaml:"max_backoff" default:"2s"`
}

type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled" default:"true"`
	FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
	Interval         time.Duration `yaml:"interval" default:"60s"`
	OpenTimeout      time.Duration `yaml:"open_timeout" default:"30s"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"5" validate:"gte=0"`
	Burst   int     `yaml:"burst" default:"10" validate:"gte=0"`
}

var validate = validator.New()

// Default returns a config populated only from struct defaults.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("DEFAULT_SYMBOL"); v != "" {
		c.Dashboard.DefaultSymbol = xutil.NormalizeSymbol(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.Archive.ClickHouse.Host = v
		c.Archive.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.Archive.ClickHouse.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = xutil.SplitCSV(v)
		c.Events.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Events.Topic = v
	}
	if v := getenv("MARKET_DATA_URL"); v != "" {
		c.Providers.MarketData.BaseURL = v
	}
	if v := getenv("REFERENCE_DATA_URL"); v != "" {
		c.Providers.ReferenceData.URL = v
	}
	if v := getenv("RATELIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RPS = rps
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Providers.MarketData.Retry.MinBackoff > c.Providers.MarketData.Retry.MaxBackoff {
		return fmt.Errorf("providers.market_data.retry: min_backoff must not exceed max_backoff")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events are enabled")
	}
	if c.Cache.SeriesTTL <= 0 || c.Cache.SecuritiesTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	return nil
}

// MinDate returns dashboard.min_date as UTC midnight.
func (c *Config) MinDate() time.Time {
	t, _ := xutil.ParseDate(c.Dashboard.MinDate)
	return t
}
