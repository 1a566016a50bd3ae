package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		AllowedOrigins  []string      `yaml:"allowed_origins" default:"[\"http://localhost:3000\"]"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		PredictRate     float64       `yaml:"predict_rate" default:"10"` // per client IP per minute
		PredictBurst    int           `yaml:"predict_burst" default:"10"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	// Tickers are kept warm by the retrain scheduler.
	Tickers []string `yaml:"tickers" default:"[\"AAPL\",\"MSFT\",\"NVDA\"]"`

	Prices     PricesConfig     `yaml:"prices"`
	News       NewsConfig       `yaml:"news"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Sentiment  SentimentConfig  `yaml:"sentiment"`
	Training   TrainingConfig   `yaml:"training"`
	Store      StoreConfig      `yaml:"store"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

// PricesConfig drives the daily bar loader.
type PricesConfig struct {
	Lookback    time.Duration `yaml:"lookback" default:"17520h"` // two years
	RateLimit   float64       `yaml:"rate_limit" default:"2"`    // requests per second
	Burst       int           `yaml:"burst" default:"2"`
	MaxAttempts int           `yaml:"max_attempts" default:"3"`
	Backoff     time.Duration `yaml:"backoff" default:"500ms"`
}

// NewsConfig drives the Google News RSS source.
type NewsConfig struct {
	BaseURL     string        `yaml:"base_url" default:"https://news.google.com/rss/search"`
	UserAgent   string        `yaml:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"`
	Timeout     time.Duration `yaml:"timeout" default:"10s"`
	RateLimit   float64       `yaml:"rate_limit" default:"1"`
	Burst       int           `yaml:"burst" default:"1"`
	MaxAttempts int           `yaml:"max_attempts" default:"3"`
	Backoff     time.Duration `yaml:"backoff" default:"300ms"`
}

// ClassifierConfig points at the headline sentiment service.
type ClassifierConfig struct {
	URL         string        `yaml:"url" default:"http://localhost:8000"`
	Timeout     time.Duration `yaml:"timeout" default:"20s"`
	BatchSize   int           `yaml:"batch_size" default:"16"`
	MaxAttempts int           `yaml:"max_attempts" default:"2"`
}

// SentimentConfig parameterizes the aggregator.
type SentimentConfig struct {
	WindowHours      float64 `yaml:"window_hours" default:"72"`
	DecayConstant    float64 `yaml:"decay_constant" default:"0.020833333333333332"` // 1/48 per hour
	MaxArticles      int     `yaml:"max_articles" default:"25"`
	ContextHeadlines int     `yaml:"context_headlines" default:"5"`
}

// TrainingConfig drives the training controller and scheduler.
type TrainingConfig struct {
	Cadence     time.Duration `yaml:"cadence" default:"168h"`
	MaxAttempts int           `yaml:"max_attempts" default:"3"`
	Backoff     time.Duration `yaml:"backoff" default:"2s"`
	LockTTL     time.Duration `yaml:"lock_ttl" default:"30m"`
	Schedule    string        `yaml:"schedule" default:"0 2 * * *"`
	WarmStart   bool          `yaml:"warm_start" default:"true"`
	Search      struct {
		Iterations  int     `yaml:"iterations" default:"20"`
		Folds       int     `yaml:"folds" default:"5"`
		Seed        uint64  `yaml:"seed" default:"123"`
		MaxFeatures float64 `yaml:"max_features" default:"1"`
		Workers     int     `yaml:"workers" default:"0"`
	} `yaml:"search"`
}

// StoreConfig selects the model store backend.
type StoreConfig struct {
	Backend string        `yaml:"backend" default:"redis"` // redis | memory
	L1TTL   time.Duration `yaml:"l1_ttl" default:"30s"`    // in-process copy in front of redis; 0 disables
}

type RedisConfig struct {
	Addr         string        `yaml:"addr" default:"localhost:6379"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" default:"0"`
	PoolSize     int           `yaml:"pool_size" default:"10"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"3s"`
	KeyPrefix    string        `yaml:"key_prefix" default:"finsight"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled" default:"false"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"finsight"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled" default:"false"`
	Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	EventsTopic  string   `yaml:"events_topic" default:"finsight.training.events"`
	RetrainTopic string   `yaml:"retrain_topic" default:"finsight.training.requests"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"finsight-trainer"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"16"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"finsight.training.requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env if present, then the YAML file, then environment overrides.
// An empty path skips the file and starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

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
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = splitList(v)
	}
	if v := os.Getenv("CLASSIFIER_URL"); v != "" {
		c.Classifier.URL = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Store.Backend != "redis" && c.Store.Backend != "memory" {
		return fmt.Errorf("store.backend must be 'redis' or 'memory', got '%s'", c.Store.Backend)
	}
	if c.Store.L1TTL < 0 {
		return fmt.Errorf("store.l1_ttl must not be negative")
	}
	if c.Sentiment.WindowHours <= 0 {
		return fmt.Errorf("sentiment.window_hours must be positive")
	}
	if c.Sentiment.DecayConstant <= 0 {
		return fmt.Errorf("sentiment.decay_constant must be positive")
	}
	if c.Sentiment.MaxArticles <= 0 {
		return fmt.Errorf("sentiment.max_articles must be positive")
	}
	if c.Training.Cadence <= 0 {
		return fmt.Errorf("training.cadence must be positive")
	}
	if c.Training.MaxAttempts <= 0 {
		return fmt.Errorf("training.max_attempts must be positive")
	}
	if c.Training.Search.Folds < 2 {
		return fmt.Errorf("training.search.folds must be at least 2, got %d", c.Training.Search.Folds)
	}
	if c.Prices.Lookback <= 0 {
		return fmt.Errorf("prices.lookback must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
