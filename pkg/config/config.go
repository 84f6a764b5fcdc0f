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
)

// Version is stamped at build time with -ldflags "-X ShrimpCast/pkg/config.Version=...".
var Version = "dev"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8050" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"500ms"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
		// Error aggregation shipped over Kafka; needs kafka.enabled.
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"shrimpcast.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Forecast  ForecastConfig `yaml:"forecast"`
	Models    ModelsConfig   `yaml:"models"`
	Cache     CacheConfig    `yaml:"cache"`
	History   HistoryConfig  `yaml:"history"`
	Kafka     KafkaConfig    `yaml:"kafka"`
	WebSocket struct {
		Enabled        bool          `yaml:"enabled" default:"true"`
		ReadLimit      int64         `yaml:"read_limit" default:"8192"`
		PongWait       time.Duration `yaml:"pong_wait" default:"60s"`
		WriteWait      time.Duration `yaml:"write_wait" default:"10s"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"websocket"`
	RateLimit struct {
		Enabled    bool    `yaml:"enabled" default:"true"`
		Capacity   float64 `yaml:"capacity" default:"20"`
		RefillRate float64 `yaml:"refill_per_second" default:"5"`
	} `yaml:"rate_limit"`
}

// ForecastConfig holds the immutable forecast constants and input defaults.
type ForecastConfig struct {
	ExchangeRate   float64         `yaml:"exchange_rate" default:"15000" validate:"gt=0"`
	Currency       string          `yaml:"currency" default:"IDR" validate:"required"`
	MaxHorizonDays int             `yaml:"max_horizon_days" default:"365" validate:"gte=1"`
	Defaults       ParameterValues `yaml:"defaults"`
}

// ParameterValues mirrors the 19 dashboard inputs with their fallback values.
type ParameterValues struct {
	DaysUntilHarvest   int     `yaml:"days_until_harvest" default:"60" validate:"gte=0"`
	CycleAgeDays       float64 `yaml:"cycle_age_days" default:"60" validate:"gte=0"`
	TotalSeed          float64 `yaml:"total_seed" default:"100000" validate:"gte=0"`
	Area               float64 `yaml:"area" default:"1000" validate:"gte=0"`
	TotalShrimp        float64 `yaml:"total_shrimp" default:"95000" validate:"gte=0"`
	TotalWeight        float64 `yaml:"total_weight" default:"1500" validate:"gte=0"`
	FeedQuantity       float64 `yaml:"feed_quantity" default:"1200" validate:"gte=0"`
	MorningTemperature float64 `yaml:"morning_temperature" default:"28"`
	EveningTemperature float64 `yaml:"evening_temperature" default:"27"`
	MorningDO          float64 `yaml:"morning_do" default:"7.2" validate:"gte=0"`
	EveningDO          float64 `yaml:"evening_do" default:"6.8" validate:"gte=0"`
	MorningSalinity    float64 `yaml:"morning_salinity" default:"35" validate:"gte=0"`
	EveningSalinity    float64 `yaml:"evening_salinity" default:"34" validate:"gte=0"`
	MorningPH          float64 `yaml:"morning_pH" default:"7.8" validate:"gte=0,lte=14"`
	EveningPH          float64 `yaml:"evening_pH" default:"7.7" validate:"gte=0,lte=14"`
	Nitrate            float64 `yaml:"nitrate" default:"0.25" validate:"gte=0"`
	Nitrite            float64 `yaml:"nitrite" default:"0.02" validate:"gte=0"`
	Alkalinity         float64 `yaml:"alkalinity" default:"120" validate:"gte=0"`
	PricePerKg         float64 `yaml:"price_per_kg" default:"12" validate:"gte=0"`
}

type ModelsConfig struct {
	Survival ModelSpec `yaml:"survival" default:"{\"Kind\":\"linear\",\"Path\":\"models/survival_rate.json\",\"Name\":\"survival_rate\"}"`
	ABW      ModelSpec `yaml:"abw" default:"{\"Kind\":\"linear\",\"Path\":\"models/abw.json\",\"Name\":\"abw\"}"`
}

// ModelSpec selects how a predictor is loaded. Path is used by file-backed
// kinds, URL/Path by http, Value by constant.
type ModelSpec struct {
	Kind     string        `yaml:"kind" default:"linear" validate:"oneof=linear tree_ensemble http constant"`
	Path     string        `yaml:"path"`
	URL      string        `yaml:"url"`
	Name     string        `yaml:"name"`
	Timeout  time.Duration `yaml:"timeout" default:"3s"`
	Attempts int           `yaml:"attempts" default:"2" validate:"gte=1"`
	Value    float64       `yaml:"value"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" default:"true"`
	TTL           time.Duration `yaml:"ttl" default:"10m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"512" validate:"gte=1"`
	Redis         struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"shrimpcast"`
	} `yaml:"redis"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Runs are buffered and written in batches.
	BatchSize     int           `yaml:"batch_size" default:"100" validate:"gte=1"`
	BufferSize    int           `yaml:"buffer_size" default:"1000" validate:"gte=1"`
	FlushInterval time.Duration `yaml:"flush_interval" default:"2s"`
	ClickHouse    struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"shrimpcast"`
		Table            string        `yaml:"table" default:"forecast_runs"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Topics       struct {
		Requests string `yaml:"requests" default:"shrimpcast.forecast.requests"`
		Results  string `yaml:"results" default:"shrimpcast.forecast.results"`
		Events   string `yaml:"events" default:"shrimpcast.forecast.computed"`
	} `yaml:"topics"`
	Producer struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"shrimpcast"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"2"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"shrimpcast.forecast.requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
	} `yaml:"consumer"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. Keys absent from the file
// keep their struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
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
// An empty path skips the file and starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c = Default()
	} else if c, err = Load(path); err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHRIMPCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SHRIMPCAST_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SHRIMPCAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SHRIMPCAST_SURVIVAL_MODEL"); v != "" {
		c.Models.Survival.Path = v
	}
	if v := os.Getenv("SHRIMPCAST_ABW_MODEL"); v != "" {
		c.Models.ABW.Path = v
	}
	if v := os.Getenv("SHRIMPCAST_EXCHANGE_RATE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			c.Forecast.ExchangeRate = r
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate checks struct rules plus cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for name, m := range map[string]ModelSpec{"survival": c.Models.Survival, "abw": c.Models.ABW} {
		switch m.Kind {
		case "linear", "tree_ensemble":
			if m.Path == "" {
				return fmt.Errorf("models.%s.path is required for kind %q", name, m.Kind)
			}
		case "http":
			if m.URL == "" {
				return fmt.Errorf("models.%s.url is required for kind http", name)
			}
		}
	}
	if c.Forecast.Defaults.DaysUntilHarvest > c.Forecast.MaxHorizonDays {
		return fmt.Errorf("forecast.defaults.days_until_harvest exceeds max_horizon_days (%d)", c.Forecast.MaxHorizonDays)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	return nil
}
