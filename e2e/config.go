package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// RELAY_ADDR points the suite at a running relay (host:port).
	// Leaving it empty skips the whole suite.
	RelayAddr string `envconfig:"RELAY_ADDR"`
	// E2E_JWT_SECRET must match the relay's JWT_SECRET so the suite can
	// sign its own tokens.
	JWTSecret string `envconfig:"E2E_JWT_SECRET" default:"e2e-secret"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
