// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port            string   `env:"PORT"              envDefault:"8080"`
	LogLevel        string   `env:"LOG_LEVEL"         envDefault:"info"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS"   envSeparator:","`
	CardCatalogPath string   `env:"CARD_CATALOG_PATH"`
	// ShuffleSeed fixes the shuffle sequence. Zero seeds from crypto/rand.
	ShuffleSeed int64 `env:"SHUFFLE_SEED"`
	SendBuffer  int   `env:"SEND_BUFFER" envDefault:"64"`

	// RedisAddr enables the round recorder when set.
	RedisAddr          string `env:"REDIS_ADDR"`
	RedisDB            int    `env:"REDIS_DB"             envDefault:"0"`
	HistorianQueueName string `env:"HISTORIAN_QUEUE_NAME" envDefault:"czar_rounds"`

	DatabaseURL            string        `env:"DATABASE_URL"`
	HistorianBatchSize     int           `env:"HISTORIAN_BATCH_SIZE"     envDefault:"20"`
	HistorianFlushInterval time.Duration `env:"HISTORIAN_FLUSH_INTERVAL" envDefault:"2s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SendBuffer < 1 {
		return Config{}, fmt.Errorf("SEND_BUFFER must be positive, got %d", cfg.SendBuffer)
	}
	if cfg.HistorianBatchSize < 1 {
		return Config{}, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive, got %d", cfg.HistorianBatchSize)
	}
	if cfg.HistorianFlushInterval <= 0 {
		return Config{}, fmt.Errorf("HISTORIAN_FLUSH_INTERVAL must be positive, got %s", cfg.HistorianFlushInterval)
	}
	return cfg, nil
}

// Level is the logrus level named by LogLevel, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Origins is the websocket origin allow list. Unset means any origin.
func (c Config) Origins() []string {
	if len(c.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.AllowedOrigins
}
