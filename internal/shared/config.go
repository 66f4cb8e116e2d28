package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Aggregate   AggregateConfig   `toml:"aggregate"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	LastFM  LastFMConfig  `toml:"lastfm"`
	LLM     LLMConfig     `toml:"llm"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RateLimit    int    `toml:"rate_limit"`
}

// LastFMConfig contains Last.fm API credentials.
type LastFMConfig struct {
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
}

// LLMConfig selects the language model backing the text provider.
//
// Provider is one of "gemini", "openai" or "claude".
type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AggregateConfig tunes the fan-out, merge and enrichment pipeline.
//
// Timeouts are Go duration strings such as "8s".
type AggregateConfig struct {
	ProviderTimeout string `toml:"provider_timeout"`
	LookupTimeout   string `toml:"lookup_timeout"`
	BatchSize       int    `toml:"batch_size"`
	LastFMLimit     int    `toml:"lastfm_limit"`
	SearchLimit     int    `toml:"search_limit"`
}

// LoggingConfig contains log level and optional rotating log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ProviderTimeoutDuration parses ProviderTimeout, returning fallback when unset or invalid.
func (a AggregateConfig) ProviderTimeoutDuration(fallback time.Duration) time.Duration {
	return parseDuration(a.ProviderTimeout, fallback)
}

// LookupTimeoutDuration parses LookupTimeout, returning fallback when unset or invalid.
func (a AggregateConfig) LookupTimeoutDuration(fallback time.Duration) time.Duration {
	return parseDuration(a.LookupTimeout, fallback)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials and paths with values from the environment.
//
// lookup is usually [os.LookupEnv]; empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	set(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&c.Credentials.LastFM.APIKey, "LASTFM_API_KEY")
	set(&c.Credentials.LLM.Provider, "LLM_PROVIDER")
	set(&c.Credentials.LLM.Model, "LLM_MODEL")
	set(&c.Credentials.LLM.APIKey, "LLM_API_KEY", "GEMINI_API_KEY")
	set(&c.Database.Path, "DEJAVU_DATABASE")
	set(&c.Logging.Level, "DEJAVU_LOG_LEVEL")
}

// Validate reports missing credentials for the providers the aggregation needs.
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "spotify")
	}
	if c.Credentials.LastFM.APIKey == "" {
		missing = append(missing, "lastfm")
	}
	if c.Credentials.LLM.APIKey == "" {
		missing = append(missing, "llm")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
