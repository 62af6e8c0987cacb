// internal/pipeline/synthesize-response/config.go
package synthesizeresponse

import "time"

// Config holds synthesize-response stage configuration
type Config struct {
	Timeout time.Duration
}

// LoadConfig loads stage configuration with defaults
func LoadConfig() *Config {
	return &Config{
		Timeout: 90 * time.Second,
	}
}
