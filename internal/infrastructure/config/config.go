package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the habridge service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub         HubConfig         `yaml:"hub"`
	Cache       CacheConfig       `yaml:"cache"`
	EventStream EventStreamConfig `yaml:"eventstream"`
	API         APIConfig         `yaml:"api"`
	Security    SecurityConfig    `yaml:"security"`
	History     HistoryConfig     `yaml:"history"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HubConfig contains connection settings for the upstream automation hub.
type HubConfig struct {
	// URL is the base URL of the hub (e.g., "http://homeassistant.local:8123").
	URL string `yaml:"url"`

	// Token is the long-lived bearer token used for both REST calls and
	// the WebSocket event feed.
	Token string `yaml:"token"`

	// Timeout is the per-request timeout for REST calls (seconds).
	Timeout int `yaml:"timeout"`
}

// CacheConfig contains cache namespace policies and the event-update mode.
type CacheConfig struct {
	// UpdateFromEvents selects the fast path: when true, state-changed
	// events overwrite cache entries directly; when false, entries are
	// invalidated and the next read refetches from the hub.
	UpdateFromEvents bool `yaml:"update_from_events"`

	States   NamespaceConfig `yaml:"states"`
	Services NamespaceConfig `yaml:"services"`
	Config   NamespaceConfig `yaml:"config"`
}

// NamespaceConfig contains the expiry and size policy for one cache namespace.
type NamespaceConfig struct {
	// TTL is the entry time-to-live in seconds.
	TTL int `yaml:"ttl"`

	// MaxEntries bounds the namespace size. When exceeded, the oldest
	// inserted entries are evicted first.
	MaxEntries int `yaml:"max_entries"`
}

// EventStreamConfig contains WebSocket event feed settings.
type EventStreamConfig struct {
	Enabled bool `yaml:"enabled"`

	// AuthTimeout is the maximum time to wait for the hub's auth-ok reply
	// before treating the attempt as an authentication failure (seconds).
	AuthTimeout int `yaml:"auth_timeout"`

	Filter    FilterConfig    `yaml:"filter"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// FilterConfig contains entity filtering settings for incoming events.
type FilterConfig struct {
	Enabled bool `yaml:"enabled"`

	// EntityPrefixes restricts processing to entities whose ID starts with
	// one of these prefixes (e.g., "light.", "sensor.temp"). Empty means
	// all entities pass (subject to ExcludedDomains).
	EntityPrefixes []string `yaml:"entity_prefixes"`

	// ExcludedDomains discards events for entities in these domains
	// (e.g., "camera"). Checked before EntityPrefixes.
	ExcludedDomains []string `yaml:"excluded_domains"`
}

// ReconnectConfig contains event feed reconnection settings.
type ReconnectConfig struct {
	// MaxAttempts limits consecutive reconnection attempts. 0 means unlimited.
	MaxAttempts int `yaml:"max_attempts"`

	// MaxDelay caps the exponential backoff delay (seconds).
	MaxDelay int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// SecurityConfig contains caller authentication and rate limiting settings.
type SecurityConfig struct {
	// APIKeys is the set of bearer keys accepted by the bridge.
	APIKeys []string `yaml:"api_keys"`

	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains settings for short-lived tokens minted by the bridge.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// TokenTTL is the lifetime of issued tokens (minutes).
	TokenTTL int `yaml:"token_ttl"`
}

// RateLimitConfig contains per-key request rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`

	// Requests is the number of requests allowed per window.
	Requests int `yaml:"requests"`

	// Window is the rate limiting window (seconds).
	Window int `yaml:"window"`
}

// HistoryConfig contains state-change history settings.
type HistoryConfig struct {
	Enabled       bool           `yaml:"enabled"`
	Database      DatabaseConfig `yaml:"database"`
	RetentionDays int            `yaml:"retention_days"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains settings for the optional MQTT event fanout.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains settings for optional time-series state recording.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HABRIDGE_SECTION_KEY
// For example: HABRIDGE_HUB_URL, HABRIDGE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default per-namespace policies mirror how often each data set changes:
// services change less often than entity states, and hub config changes rarely.
const (
	defaultStatesTTL   = 300
	defaultServicesTTL = defaultStatesTTL * 2
	defaultConfigTTL   = defaultStatesTTL * 10
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			URL:     "http://localhost:8123",
			Timeout: 30,
		},
		Cache: CacheConfig{
			UpdateFromEvents: true,
			States:           NamespaceConfig{TTL: defaultStatesTTL, MaxEntries: 1000},
			Services:         NamespaceConfig{TTL: defaultServicesTTL, MaxEntries: 100},
			Config:           NamespaceConfig{TTL: defaultConfigTTL, MaxEntries: 10},
		},
		EventStream: EventStreamConfig{
			Enabled:     true,
			AuthTimeout: 10,
			Reconnect: ReconnectConfig{
				MaxAttempts: 0,
				MaxDelay:    300,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 60,
			},
			RateLimit: RateLimitConfig{
				Enabled:  true,
				Requests: 100,
				Window:   60,
			},
		},
		History: HistoryConfig{
			Database: DatabaseConfig{
				Path:        "./data/habridge.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "habridge",
			},
			QoS: 1,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HABRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("HABRIDGE_HUB_URL"); v != "" {
		cfg.Hub.URL = v
	}
	if v := os.Getenv("HABRIDGE_HUB_TOKEN"); v != "" {
		cfg.Hub.Token = v
	}

	// API
	if v := os.Getenv("HABRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HABRIDGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Security - API keys (comma separated) and JWT secret
	// (IMPORTANT: always set these in production)
	if v := os.Getenv("HABRIDGE_API_KEYS"); v != "" {
		cfg.Security.APIKeys = splitAndTrim(v)
	}
	if v := os.Getenv("HABRIDGE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	// History database
	if v := os.Getenv("HABRIDGE_DATABASE_PATH"); v != "" {
		cfg.History.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HABRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HABRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HABRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HABRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// splitAndTrim splits a comma-separated value and trims whitespace from each part.
func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hub validation
	if c.Hub.URL == "" {
		errs = append(errs, "hub.url is required")
	}
	if c.Hub.Token == "" {
		errs = append(errs, "hub.token is required (set HABRIDGE_HUB_TOKEN environment variable)")
	}

	// Cache validation - every namespace must carry a usable policy
	namespaces := []struct {
		name string
		cfg  NamespaceConfig
	}{
		{"cache.states", c.Cache.States},
		{"cache.services", c.Cache.Services},
		{"cache.config", c.Cache.Config},
	}
	for _, ns := range namespaces {
		if ns.cfg.TTL <= 0 {
			errs = append(errs, ns.name+".ttl must be positive")
		}
		if ns.cfg.MaxEntries <= 0 {
			errs = append(errs, ns.name+".max_entries must be positive")
		}
	}

	// Event stream validation
	if c.EventStream.AuthTimeout <= 0 {
		errs = append(errs, "eventstream.auth_timeout must be positive")
	}
	if c.EventStream.Reconnect.MaxDelay <= 0 {
		errs = append(errs, "eventstream.reconnect.max_delay must be positive")
	}
	if c.EventStream.Reconnect.MaxAttempts < 0 {
		errs = append(errs, "eventstream.reconnect.max_attempts cannot be negative")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security validation - the bridge exposes hub control, so callers must
	// authenticate. The JWT secret is only required when token issuing is used.
	if len(c.Security.APIKeys) == 0 {
		errs = append(errs, "security.api_keys is required (set HABRIDGE_API_KEYS environment variable)")
	}
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// History validation
	if c.History.Enabled && c.History.Database.Path == "" {
		errs = append(errs, "history.database.path is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// HubTimeout returns the hub request timeout as a Duration.
func (c *Config) HubTimeout() time.Duration {
	return time.Duration(c.Hub.Timeout) * time.Second
}

// GetAuthTimeout returns the event feed authentication timeout as a Duration.
func (c *EventStreamConfig) GetAuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeout) * time.Second
}

// GetMaxDelay returns the reconnect backoff cap as a Duration.
func (c *ReconnectConfig) GetMaxDelay() time.Duration {
	return time.Duration(c.MaxDelay) * time.Second
}

// GetTTL returns the namespace TTL as a Duration.
func (c *NamespaceConfig) GetTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
