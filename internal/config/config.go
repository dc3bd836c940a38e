package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/josh-kwaku/acquisim/internal/secret"
)

type Config struct {
	Addr             string        `env:"ADDR" envDefault:"0.0.0.0"`
	Port             int           `env:"PORT" envDefault:"8080"`
	PublicBaseURL    string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	BankUsername     string        `env:"BANK_USERNAME,required,notEmpty"`
	TerminalPassword secret.Secret `env:"TERMINAL_PASSWORD,required,notEmpty"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv           string        `env:"APP_ENV" envDefault:"production"`

	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"30s"`

	LedgerLockTimeout  time.Duration `env:"LEDGER_LOCK_TIMEOUT" envDefault:"2s"`
	LedgerLockAttempts int           `env:"LEDGER_LOCK_ATTEMPTS" envDefault:"3"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`

	NotifyAttempts int           `env:"NOTIFY_ATTEMPTS" envDefault:"3"`
	NotifyTimeout  time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`

	CardTokenTTL time.Duration `env:"CARD_TOKEN_TTL" envDefault:"720h"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}
