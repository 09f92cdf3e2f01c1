package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration for the roster service.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server,omitempty"`
	Registry  RegistryConfig  `yaml:"registry" json:"registry,omitempty"`
	Database  DatabaseConfig  `yaml:"database" json:"database,omitempty"`
	Security  SecurityConfig  `yaml:"security" json:"security,omitempty"`
	Cache     CacheConfig     `yaml:"cache" json:"cache,omitempty"`
	Bus       BusConfig       `yaml:"bus" json:"bus,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry,omitempty"`
	HotReload HotReloadConfig `yaml:"hot_reload" json:"hot_reload,omitempty"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RegistryConfig configures persona loading and selection behavior
type RegistryConfig struct {
	// PersonaPath is the directory of persona definition files.
	PersonaPath string `yaml:"persona_path"`

	// Source selects the record source: "file" or "postgres".
	Source string `yaml:"source"`

	// Strict aborts the whole load on the first malformed definition
	// instead of skipping the bad record.
	Strict bool `yaml:"strict"`

	// MinConfidence is the score a persona must clear to be selected.
	MinConfidence float64 `yaml:"min_confidence"`

	// HintBonus is the extra weight granted when a declared task hint
	// appears in a persona's trigger examples.
	HintBonus float64 `yaml:"hint_bonus"`

	// LoadTimeout bounds a single load/reload.
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// DatabaseConfig configures the optional PostgreSQL persona source
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SecurityConfig configures authentication and authorization
type SecurityConfig struct {
	EnableAuth     bool     `yaml:"enable_auth"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS
	APIKeys        []string `yaml:"api_keys,omitempty"`
	JWTSecret      string   `yaml:"jwt_secret" json:"jwt_secret,omitempty"`

	// AdminUser/AdminPassword seed a bootstrap user that can log in at
	// /api/v1/auth/login for a JWT session token. No user is created
	// when the password is empty.
	AdminUser     string `yaml:"admin_user,omitempty"`
	AdminPassword string `yaml:"admin_password" json:"admin_password,omitempty"`
}

// CacheConfig configures dispatch result caching
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend"` // "memory" or "redis"
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	MaxSize       int           `yaml:"max_size"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
	RedisURL      string        `yaml:"redis_url,omitempty"`
}

// BusConfig configures the optional NATS event bridge
type BusConfig struct {
	Enabled    bool          `yaml:"enabled"`
	URL        string        `yaml:"url"`
	StreamName string        `yaml:"stream_name"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TelemetryConfig configures OpenTelemetry export
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// HotReloadConfig configures the optional persona directory watcher.
// The watcher only turns filesystem changes into explicit Reload calls;
// it is off by default so reloads stay caller-triggered.
type HotReloadConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// LoadConfigFromFile loads configuration from a YAML file at the specified path.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g. ${ROSTER_JWT_SECRET}) before parsing YAML
	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks cross-field constraints that YAML parsing cannot.
func (c *Config) Validate() error {
	if c.Registry.MinConfidence < 0 || c.Registry.MinConfidence > 1 {
		return fmt.Errorf("registry.min_confidence must be in [0,1], got %v", c.Registry.MinConfidence)
	}
	if c.Registry.HintBonus < 0 || c.Registry.HintBonus > 1 {
		return fmt.Errorf("registry.hint_bonus must be in [0,1], got %v", c.Registry.HintBonus)
	}
	switch c.Registry.Source {
	case "", "file", "postgres":
	default:
		return fmt.Errorf("registry.source must be \"file\" or \"postgres\", got %q", c.Registry.Source)
	}
	if c.Registry.Source == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("registry.source is postgres but database.dsn is empty")
	}
	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Registry: RegistryConfig{
			PersonaPath:   "./personas",
			Source:        "file",
			Strict:        false,
			MinConfidence: 0.15,
			HintBonus:     0.25,
			LoadTimeout:   30 * time.Second,
		},
		Security: SecurityConfig{
			EnableAuth:     false,
			AllowedOrigins: []string{"*"},
		},
		Cache: CacheConfig{
			Enabled:       true,
			Backend:       "memory",
			DefaultTTL:    5 * time.Minute,
			MaxSize:       10000,
			CleanupPeriod: time.Minute,
		},
		Bus: BusConfig{
			Enabled:    false,
			URL:        "nats://localhost:4222",
			StreamName: "ROSTER",
			Timeout:    10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "rosterd",
		},
		HotReload: HotReloadConfig{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
	}
}
