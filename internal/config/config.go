// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob for the service. Values are read once at
// startup.
type Config struct {
	Addr   string `env:"CROWNWYNN_ADDR" envDefault:":8080"`
	DBPath string `env:"CROWNWYNN_DB_PATH" envDefault:"crownwynn.db"`

	// LedgerBackend selects where balances live: "sqlite", "redis" or
	// "memory".
	LedgerBackend string `env:"CROWNWYNN_LEDGER_BACKEND" envDefault:"sqlite"`
	RedisAddr     string `env:"CROWNWYNN_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"CROWNWYNN_REDIS_PASSWORD"`
	RedisDB       int    `env:"CROWNWYNN_REDIS_DB" envDefault:"0"`

	MinBet         string  `env:"CROWNWYNN_MIN_BET" envDefault:"0.01"`
	MaxBet         string  `env:"CROWNWYNN_MAX_BET" envDefault:"10000.00"`
	HouseEdge      float64 `env:"CROWNWYNN_HOUSE_EDGE" envDefault:"0.01"`
	OpeningBalance string  `env:"CROWNWYNN_OPENING_BALANCE" envDefault:"1000.00"`

	// CreditSweepInterval is how often the pending-credit sweep runs.
	CreditSweepInterval time.Duration `env:"CROWNWYNN_CREDIT_SWEEP_INTERVAL" envDefault:"30s"`
}

// Load reads a .env file when present, then parses the environment. A
// missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
