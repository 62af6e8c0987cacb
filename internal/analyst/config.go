// internal/analyst/config.go
package analyst

type Config struct {
	DigestExchanges int
	DigestMaxChars  int
	HistoryLimit    int
	SearchLimit     int
}

func LoadConfig() *Config {
	return &Config{
		DigestExchanges: 5,
		DigestMaxChars:  200,
		HistoryLimit:    10,
		SearchLimit:     5,
	}
}
