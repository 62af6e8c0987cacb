// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Server    ServerConfig           `mapstructure:"server"`
	Database  DatabaseConfig         `mapstructure:"database"`
	Reasoning ReasoningConfig        `mapstructure:"reasoning"`
	Memory    MemoryConfig           `mapstructure:"memory"`
	Archive   ArchiveConfig          `mapstructure:"archive"`
	Alerts    AlertsConfig           `mapstructure:"alerts"`
	Stages    map[string]StageConfig `mapstructure:"stages"`
	Logging   LoggingConfig          `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	AskTimeout      int `mapstructure:"ask_timeout"`      // milliseconds, whole pipeline invocation
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ReasoningConfig holds settings for the LLM gateway used by
// classification and synthesis.
type ReasoningConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds, per call
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// MemoryConfig holds conversation memory and session settings.
type MemoryConfig struct {
	SessionTTL      int `mapstructure:"session_ttl"`      // milliseconds
	SweepInterval   int `mapstructure:"sweep_interval"`   // milliseconds
	DigestExchanges int `mapstructure:"digest_exchanges"` // exchanges included in the context digest
	DigestMaxChars  int `mapstructure:"digest_max_chars"` // response truncation inside the digest
	HistoryLimit    int `mapstructure:"history_limit"`    // exchanges returned by the history command
}

// ArchiveConfig holds conversation archive (Elasticsearch) settings.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

// AlertsConfig holds feedback alert settings for the analytics team.
type AlertsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Email   struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled      bool     `mapstructure:"enabled"`
		SenderID     string   `mapstructure:"sender_id"`
		PhoneNumbers []string `mapstructure:"phone_numbers"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// StageConfig holds the core settings applicable to every pipeline stage.
type StageConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
