package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig maps environment variables onto config fields. All variables
// carry the STARFALL_ prefix, e.g. STARFALL_SERVER_URL.
type envConfig struct {
	ServerEndpointURL string        `env:"SERVER_URL"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"`
	DatabaseDSN       string        `env:"DATABASE_DSN"`
}

// parseEnv overlays Config with values from the environment. Unset
// variables leave the current values untouched.
func parseEnv(cfg *Config) {
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: "STARFALL_"}); err != nil {
		panic(err)
	}

	if ec.ServerEndpointURL != "" {
		cfg.ServerEndpointURL = ec.ServerEndpointURL
	}
	if ec.RequestTimeout != 0 {
		cfg.RequestTimeout = ec.RequestTimeout
	}
	if ec.DatabaseDSN != "" {
		cfg.DatabaseDSN = ec.DatabaseDSN
	}
}
