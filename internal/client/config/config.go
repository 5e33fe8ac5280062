package config

import "time"

// Config holds runtime settings for the examvault CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API, including the /api prefix.
//   - RequestTimeout: deadline for metadata calls (health, list, verify, delete).
//   - TransferTimeout: deadline for upload and download.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerURL           string
	RequestTimeout      time.Duration
	TransferTimeout     time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:5000/api"
	c.RequestTimeout = 30 * time.Second
	c.TransferTimeout = 60 * time.Second
	c.OnlineCheckInterval = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
