// internal/pipeline/prescribe-actions/config.go
package prescribeactions

import "time"

// Config holds prescribe-actions stage configuration
type Config struct {
	Timeout time.Duration
}

// LoadConfig loads stage configuration with defaults
func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
