// Package config loads Tribbler's process configuration from environment
// variables, following the teacher's env-var-with-defaults style
// (getEnvString/getEnvInt/getEnvDuration/... plus a Validate pass).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every section any Tribbler binary might need; each cmd/
// entry point reads only the sections relevant to it.
type Config struct {
	Backend  BackendConfig
	Keeper   KeeperConfig
	Frontend FrontendConfig
	Log      LogConfig
	Tracing  TracingConfig
	Audit    AuditConfig
}

// BackendConfig configures a single backend server process (component A).
type BackendConfig struct {
	ID          int
	RPCAddr     string
	HealthAddr  string
	StorageType string // "memory" or "badger"
	DataDir     string
}

// BackendAddr names a backend the keeper or migration engine dials.
type BackendAddr struct {
	ID         int
	RPCAddr    string
	HealthAddr string
}

// KeeperConfig configures the keeper control-plane process (component G).
type KeeperConfig struct {
	Backends     []BackendAddr
	TickInterval time.Duration
}

// FrontendConfig configures the HTTP front-end process (component F).
type FrontendConfig struct {
	Host      string
	Port      int
	Backends  []BackendAddr
	RateLimit RateLimitConfig
	Auth      AuthConfig
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRatio  float64
	InsecureConn   bool
}

// RateLimitConfig contains front-end rate limiting configuration.
type RateLimitConfig struct {
	Enabled         bool
	RequestsPerSec  float64
	Burst           int
	ByIP            bool
	CleanupInterval time.Duration
}

// AuthConfig contains front-end JWT authentication configuration.
type AuthConfig struct {
	Enabled       bool
	JWTSecret     string
	JWTExpiry     time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// AuditConfig contains keeper membership-transition audit configuration.
type AuditConfig struct {
	Enabled       bool
	Sink          string
	FilePath      string
	BufferSize    int
	FlushInterval time.Duration
	DropPolicy    string // "block" or "drop"
}

// Load loads the full configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Backend: BackendConfig{
			ID:          getEnvInt("TRIBBLER_BACKEND_ID", 0),
			RPCAddr:     getEnvString("TRIBBLER_BACKEND_RPC_ADDR", ":9000"),
			HealthAddr:  getEnvString("TRIBBLER_BACKEND_HEALTH_ADDR", ":9001"),
			StorageType: getEnvString("TRIBBLER_BACKEND_STORAGE", "memory"),
			DataDir:     getEnvString("TRIBBLER_BACKEND_DATA_DIR", "./data"),
		},
		Keeper: KeeperConfig{
			Backends:     getEnvBackendList("TRIBBLER_BACKENDS"),
			TickInterval: getEnvDuration("TRIBBLER_KEEPER_TICK_INTERVAL", time.Second),
		},
		Frontend: FrontendConfig{
			Host:     getEnvString("TRIBBLER_FRONTEND_HOST", ""),
			Port:     getEnvInt("TRIBBLER_FRONTEND_PORT", 8080),
			Backends: getEnvBackendList("TRIBBLER_BACKENDS"),
			RateLimit: RateLimitConfig{
				Enabled:         getEnvBool("TRIBBLER_RATE_LIMIT_ENABLED", true),
				RequestsPerSec:  getEnvFloat("TRIBBLER_RATE_LIMIT_REQUESTS_PER_SEC", 50.0),
				Burst:           getEnvInt("TRIBBLER_RATE_LIMIT_BURST", 20),
				ByIP:            getEnvBool("TRIBBLER_RATE_LIMIT_BY_IP", true),
				CleanupInterval: getEnvDuration("TRIBBLER_RATE_LIMIT_CLEANUP", 5*time.Minute),
			},
			Auth: AuthConfig{
				Enabled:       getEnvBool("TRIBBLER_AUTH_ENABLED", false),
				JWTSecret:     getEnvString("TRIBBLER_JWT_SECRET", ""),
				JWTExpiry:     getEnvDuration("TRIBBLER_JWT_EXPIRY", 15*time.Minute),
				RefreshExpiry: getEnvDuration("TRIBBLER_REFRESH_EXPIRY", 7*24*time.Hour),
				Issuer:        getEnvString("TRIBBLER_JWT_ISSUER", "tribbler"),
			},
		},
		Log: LogConfig{
			Level:  getEnvString("TRIBBLER_LOG_LEVEL", "info"),
			Format: getEnvString("TRIBBLER_LOG_FORMAT", "text"),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRIBBLER_TRACING_ENABLED", false),
			Endpoint:       getEnvString("TRIBBLER_TRACING_ENDPOINT", "otel-collector:4318"),
			ServiceName:    getEnvString("TRIBBLER_TRACING_SERVICE_NAME", "tribbler"),
			ServiceVersion: getEnvString("TRIBBLER_TRACING_SERVICE_VERSION", "1.0.0"),
			Environment:    getEnvString("TRIBBLER_TRACING_ENVIRONMENT", "development"),
			SamplingRatio:  getEnvFloat("TRIBBLER_TRACING_SAMPLING_RATIO", 1.0),
			InsecureConn:   getEnvBool("TRIBBLER_TRACING_INSECURE", true),
		},
		Audit: AuditConfig{
			Enabled:       getEnvBool("TRIBBLER_AUDIT_ENABLED", false),
			Sink:          getEnvString("TRIBBLER_AUDIT_SINK", "file"),
			FilePath:      getEnvString("TRIBBLER_AUDIT_FILE_PATH", "./logs/audit.log"),
			BufferSize:    getEnvInt("TRIBBLER_AUDIT_BUFFER_SIZE", 1024),
			FlushInterval: getEnvDuration("TRIBBLER_AUDIT_FLUSH_INTERVAL", time.Second),
			DropPolicy:    getEnvString("TRIBBLER_AUDIT_DROP_POLICY", "drop"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Backend.ID < 0 {
		return fmt.Errorf("backend id must be non-negative, got %d", c.Backend.ID)
	}

	validStorage := map[string]bool{"memory": true, "badger": true}
	if !validStorage[c.Backend.StorageType] {
		return fmt.Errorf("invalid backend storage type: %s (must be memory or badger)", c.Backend.StorageType)
	}
	if c.Backend.StorageType == "badger" && c.Backend.DataDir == "" {
		return fmt.Errorf("data directory must be specified when storage type is badger")
	}

	if c.Frontend.Port <= 0 || c.Frontend.Port > 65535 {
		return fmt.Errorf("invalid frontend port: %d (must be 1-65535)", c.Frontend.Port)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.Frontend.RateLimit.Enabled {
		if c.Frontend.RateLimit.RequestsPerSec <= 0 {
			return fmt.Errorf("rate limit requests per second must be positive")
		}
		if c.Frontend.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	if c.Frontend.Auth.Enabled {
		if c.Frontend.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret must be specified when auth is enabled")
		}
		if c.Frontend.Auth.JWTExpiry <= 0 {
			return fmt.Errorf("JWT expiry must be positive")
		}
	}

	if c.Audit.Enabled {
		validSinks := map[string]bool{"file": true, "stdout": true}
		if !validSinks[c.Audit.Sink] {
			return fmt.Errorf("invalid audit sink: %s (must be file or stdout)", c.Audit.Sink)
		}
		if c.Audit.Sink == "file" && c.Audit.FilePath == "" {
			return fmt.Errorf("audit file path must be specified when sink=file")
		}
		if c.Audit.BufferSize <= 0 {
			return fmt.Errorf("audit buffer size must be positive")
		}
		if c.Audit.FlushInterval <= 0 {
			return fmt.Errorf("audit flush interval must be positive")
		}
		if c.Audit.DropPolicy != "drop" && c.Audit.DropPolicy != "block" {
			return fmt.Errorf("audit drop policy must be 'drop' or 'block'")
		}
	}

	return nil
}

// Address returns the front-end's bind address in host:port format.
func (c *Config) Address() string {
	if c.Frontend.Host == "" {
		return fmt.Sprintf(":%d", c.Frontend.Port)
	}
	return fmt.Sprintf("%s:%d", c.Frontend.Host, c.Frontend.Port)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBackendList parses a comma-separated "id=rpcAddr:healthAddr" list,
// e.g. "0=localhost:9000:localhost:9001,1=localhost:9010:localhost:9011".
func getEnvBackendList(key string) []BackendAddr {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []BackendAddr
	for _, entry := range splitAndTrim(value, ",") {
		if entry == "" {
			continue
		}
		idPart, rest, ok := cutString(entry, "=")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idPart)
		if err != nil {
			continue
		}
		rpcAddr, healthAddr, ok := cutLastString(rest, ":")
		if !ok {
			rpcAddr, healthAddr = rest, ""
		}
		out = append(out, BackendAddr{ID: id, RPCAddr: rpcAddr, HealthAddr: healthAddr})
	}
	return out
}

func splitAndTrim(s, delimiter string) []string {
	parts := splitString(s, delimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, trimSpace(p))
	}
	return out
}

func splitString(s, delimiter string) []string {
	if s == "" {
		return []string{}
	}
	result := []string{}
	current := ""
	for i := 0; i < len(s); i++ {
		if i+len(delimiter) <= len(s) && s[i:i+len(delimiter)] == delimiter {
			result = append(result, current)
			current = ""
			i += len(delimiter) - 1
		} else {
			current += string(s[i])
		}
	}
	result = append(result, current)
	return result
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}
	return s[start:end]
}

// cutString splits s at the first occurrence of sep.
func cutString(s, sep string) (before, after string, found bool) {
	parts := splitString(s, sep)
	if len(parts) < 2 {
		return s, "", false
	}
	return parts[0], joinWith(parts[1:], sep), true
}

// cutLastString splits s at its middle occurrence of sep: the first
// len(fields)/2 sep-separated fields go to before, the rest to after. This
// matches a "rpcHost:rpcPort:healthHost:healthPort"-style pair where each
// addr itself contains one colon (host:port).
func cutLastString(s, sep string) (before, after string, found bool) {
	parts := splitString(s, sep)
	if len(parts) < 2 {
		return s, "", false
	}
	mid := len(parts) / 2
	return joinWith(parts[:mid], sep), joinWith(parts[mid:], sep), true
}

func joinWith(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
