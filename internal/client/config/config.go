package config

import "time"

// Config holds runtime settings for the Starfall client.
//
// Fields:
//   - ServerEndpointURL: base URL of the game backend REST API.
//   - RequestTimeout: per-request HTTP timeout.
//   - DatabaseDSN: SQLite DSN for local credential storage.
type Config struct {
	ServerEndpointURL string
	RequestTimeout    time.Duration
	DatabaseDSN       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.DatabaseDSN = "starfall.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if a config file is given), environment variables, and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
