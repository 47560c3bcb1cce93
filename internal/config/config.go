package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `envconfig:"SERVER_ADDR" default:":8086"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	DSN string `envconfig:"DATABASE_URL" default:"postgres://localhost:5432/fortuna?sslmode=disable"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6380"`
}

// PipelineConfig tunes the update orchestrator
type PipelineConfig struct {
	Window        time.Duration `envconfig:"UPDATE_WINDOW" default:"24h"`
	GameBatchSize int           `envconfig:"GAME_BATCH_SIZE" default:"10"`
	Workers       int           `envconfig:"BATCH_WORKERS" default:"5"`
	CacheTTL      time.Duration `envconfig:"METRICS_CACHE_TTL" default:"5m"`
}

// SchedulerConfig holds the three trigger cadences
type SchedulerConfig struct {
	LiveInterval       time.Duration `envconfig:"LIVE_INTERVAL" default:"30s"`
	RegularInterval    time.Duration `envconfig:"REGULAR_INTERVAL" default:"2m"`
	HistoricalInterval time.Duration `envconfig:"HISTORICAL_INTERVAL" default:"1h"`
	HistoricalWindow   time.Duration `envconfig:"HISTORICAL_WINDOW" default:"720h"`
}

// BackfillConfig tunes the backfill engine
type BackfillConfig struct {
	PageSize   int `envconfig:"BACKFILL_PAGE_SIZE" default:"1000"`
	BatchSize  int `envconfig:"BACKFILL_BATCH_SIZE" default:"500"`
	SampleSize int `envconfig:"BACKFILL_SAMPLE_SIZE" default:"5"`
}

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
	Backfill  BackfillConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
