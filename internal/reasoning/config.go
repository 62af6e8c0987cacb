// internal/reasoning/config.go
package reasoning

import "time"

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func LoadConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		Timeout:     60 * time.Second,
		MaxTokens:   2000,
		Temperature: 0.3,
	}
}
