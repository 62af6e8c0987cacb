// internal/archive/config.go
package archive

import "time"

// Config holds conversation archive settings.
type Config struct {
	Index   string
	Timeout time.Duration
}

// LoadConfig returns the default archive configuration.
func LoadConfig() *Config {
	return &Config{
		Index:   "agent-conversations",
		Timeout: 10 * time.Second,
	}
}
