// internal/memory/config.go
package memory

import "time"

// Config holds conversation memory configuration
type Config struct {
	SessionTTL      time.Duration
	DigestExchanges int
	DigestMaxChars  int
	HistoryLimit    int
}

// LoadConfig loads memory configuration with defaults
func LoadConfig() *Config {
	return &Config{
		SessionTTL:      24 * time.Hour,
		DigestExchanges: 5,
		DigestMaxChars:  200,
		HistoryLimit:    10,
	}
}
