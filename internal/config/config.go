// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8000"`
	Host            string        `env:"HEROES_HOST" envDefault:"0.0.0.0"`
	DataFile        string        `env:"HEROES_DATA_FILE" envDefault:"assignments.json"`
	Storage         string        `env:"HEROES_STORAGE" envDefault:"file"`
	PostgresDSN     string        `env:"HEROES_POSTGRES_DSN"`
	NATSURL         string        `env:"HEROES_NATS_URL"`
	NATSSubject     string        `env:"HEROES_NATS_SUBJECT" envDefault:"heroes"`
	LogLevel        string        `env:"HEROES_LOG_LEVEL" envDefault:"info"`
	LogDev          bool          `env:"HEROES_LOG_DEV" envDefault:"false"`
	WSOrigins       []string      `env:"HEROES_WS_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"HEROES_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Real environment variables win over .env entries.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataFile == "" {
			return errors.New("HEROES_DATA_FILE must not be empty")
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return errors.New("HEROES_POSTGRES_DSN is required when HEROES_STORAGE=postgres")
		}
	default:
		return fmt.Errorf("unknown HEROES_STORAGE %q", c.Storage)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("HEROES_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
