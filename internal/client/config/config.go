// Package config handles configuration for the upload client.
package config

import "time"

// Config holds runtime settings for the custodia upload client.
type Config struct {
	ServerEndpointAddr string
	APIToken           string
	CaseID             string
	MaxParallelUploads int
	RetryAttempts      int
	RetryBackoff       time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://localhost:8080"
	c.MaxParallelUploads = 3
	c.RetryAttempts = 3
	c.RetryBackoff = 500 * time.Millisecond
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
