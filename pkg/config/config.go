package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RatePerSecond   float64       `yaml:"rate_per_second" default:"5" validate:"gte=0"`
		RateBurst       int           `yaml:"rate_burst" default:"10" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Collector struct {
		Symbol            string        `yaml:"symbol"`
		Market            string        `yaml:"market" default:"equity" validate:"oneof=crypto equity"`
		Cadence           time.Duration `yaml:"cadence" default:"60s" validate:"gt=0"`
		AutoMode          bool          `yaml:"auto_mode"`
		AutoCheckInterval time.Duration `yaml:"auto_check_interval" default:"60s" validate:"gt=0"`
		StartOnBoot       bool          `yaml:"start_on_boot"`
	} `yaml:"collector"`
	Calendar struct {
		UTCOffset      time.Duration `yaml:"utc_offset" default:"8h"`
		PreOpen        string        `yaml:"pre_open" default:"09:00"`
		MorningOpen    string        `yaml:"morning_open" default:"09:30"`
		MorningClose   string        `yaml:"morning_close" default:"12:00"`
		AfternoonOpen  string        `yaml:"afternoon_open" default:"13:00"`
		AfternoonClose string        `yaml:"afternoon_close" default:"16:00"`
		Weekend        []string      `yaml:"weekend" default:"[\"saturday\",\"sunday\"]"`
		Holidays       []string      `yaml:"holidays"`
	} `yaml:"calendar"`
	Store struct {
		Backend       string  `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		Capacity      int     `yaml:"capacity" default:"10000" validate:"gt=0"`
		WarnRatio     float64 `yaml:"warn_ratio" default:"0.7" validate:"gt=0,lte=1"`
		CriticalRatio float64 `yaml:"critical_ratio" default:"0.9" validate:"gt=0,lte=1,gtefield=WarnRatio"`
		RestoreOnBoot bool    `yaml:"restore_on_boot" default:"true"`
	} `yaml:"store"`
	Redis struct {
		URL      string `yaml:"url"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"fincollect"`
	} `yaml:"redis"`
	Export struct {
		Sink            string `yaml:"sink" default:"file" validate:"oneof=file kafka clickhouse"`
		Dir             string `yaml:"dir" default:"./exports"`
		SizeBudgetBytes int64  `yaml:"size_budget_bytes" default:"52428800" validate:"gt=0"`
		ChunkSize       int    `yaml:"chunk_size" default:"1000" validate:"gt=0"`
	} `yaml:"export"`
	Upstream struct {
		BaseURL          string            `yaml:"base_url"`
		Path             string            `yaml:"path" default:"/quote"`
		SymbolParam      string            `yaml:"symbol_param" default:"symbol"`
		MarketParam      string            `yaml:"market_param"`
		Headers          map[string]string `yaml:"headers"`
		Timeout          time.Duration     `yaml:"timeout" default:"10s"`
		RatePerSecond    float64           `yaml:"rate_per_second" default:"5"`
		Burst            int               `yaml:"burst" default:"1"`
		BreakerFailures  uint32            `yaml:"breaker_failures" default:"5"`
		BreakerOpenDelay time.Duration     `yaml:"breaker_open_delay" default:"30s"`
	} `yaml:"upstream"`
	Kafka struct {
		Brokers         []string      `yaml:"brokers"`
		Topic           string        `yaml:"topic" default:"fincollect.exports"`
		ClientID        string        `yaml:"client_id" default:"fincollect"`
		RequiredAcks    int           `yaml:"required_acks" default:"-1"`
		Compression     string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts     int           `yaml:"max_attempts" default:"3"`
		MaxMessageBytes int           `yaml:"max_message_bytes" default:"67108864" validate:"gt=0"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"default"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		Secure      bool          `yaml:"secure"`
		Compress    bool          `yaml:"compress" default:"true"`
		Table       string        `yaml:"table" default:"collection_exports"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes; an empty document yields the defaults.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path skips the file and starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Parse(nil)
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("COLLECTOR_SYMBOL"); v != "" {
		c.Collector.Symbol = v
	}
	if v := os.Getenv("COLLECTOR_MARKET"); v != "" {
		c.Collector.Market = strings.ToLower(v)
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("EXPORT_SINK"); v != "" {
		c.Export.Sink = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Export.Sink == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when export.sink is kafka")
	}
	if c.Export.Sink == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when export.sink is clickhouse")
	}
	if c.Store.Backend == "redis" && c.Redis.URL == "" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.url or redis.addr is required when store.backend is redis")
	}
	if c.Export.Sink == "file" && c.Export.Dir == "" {
		return fmt.Errorf("export.dir is required when export.sink is file")
	}
	return nil
}
