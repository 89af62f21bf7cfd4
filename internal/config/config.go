// Package config loads server configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr      string `env:"ADDR" envDefault:":3001"`
	JWTSecret string `env:"JWT_SECRET,required"`

	// DatabaseURL is optional: without it the server runs with
	// statistics persistence disabled.
	DatabaseURL string `env:"DATABASE_URL"`

	RoomIdleTimeout time.Duration `env:"ROOM_IDLE_TIMEOUT" envDefault:"1h"`
	SweepInterval   time.Duration `env:"ROOM_SWEEP_INTERVAL" envDefault:"10m"`
	WordBankSize    int           `env:"WORD_BANK_SIZE" envDefault:"200"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
