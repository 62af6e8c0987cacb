// internal/pipeline/diagnose-metrics/config.go
package diagnosemetrics

import "time"

// Config holds diagnose-metrics stage configuration
type Config struct {
	Timeout    time.Duration
	WindowDays int
}

// LoadConfig loads stage configuration with defaults
func LoadConfig() *Config {
	return &Config{
		Timeout:    60 * time.Second,
		WindowDays: 7,
	}
}
