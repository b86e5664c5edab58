// Package config loads karibu's runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings. Zero SweepInterval disables the
// scheduled sweep; on-demand sweeps remain available either way.
type Config struct {
	ListenAddr    string        `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath        string        `env:"KARIBU_DB"`
	DevMode       bool          `env:"DEV_MODE" envDefault:"false"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`

	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	SMTPFrom      string `env:"SMTP_FROM"`
	SecurityEmail string `env:"SECURITY_EMAIL"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
