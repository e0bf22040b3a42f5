// Package config provides configuration for the versioning backend.
//
// Configuration is resolved from three sources, lowest to highest
// priority: defaults in code, layered YAML/JSON files (see loader.go),
// and environment variables. LoadConfig reads environment variables
// only, which is what the Lambda entrypoints use; long-running servers
// load through the Loader so file overlays and hot reload work.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment identifies the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Duration wraps time.Duration so configuration files can use
// "30s" / "5m" syntax. yaml.v3 and encoding/json both reject
// duration strings on a bare time.Duration field.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML accepts either a duration string ("30s") or an
// integer number of nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}

	if value.Tag == "!!int" {
		var nanos int64
		if err := value.Decode(&nanos); err != nil {
			return err
		}
		*d = Duration(nanos)
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string or integer nanoseconds")
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalJSON mirrors UnmarshalYAML for JSON configuration files.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var nanos int64
	if err := json.Unmarshal(data, &nanos); err != nil {
		return fmt.Errorf("duration must be a string or integer nanoseconds")
	}
	*d = Duration(nanos)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Config holds all application configuration.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`

	Server     Server     `yaml:"server" json:"server"`
	AWS        AWS        `yaml:"aws" json:"aws"`
	Storage    Storage    `yaml:"storage" json:"storage"`
	Versioning Versioning `yaml:"versioning" json:"versioning"`
	Cache      Cache      `yaml:"cache" json:"cache"`
	Auth       Auth       `yaml:"auth" json:"auth"`
	RateLimit  RateLimit  `yaml:"rate_limit" json:"rate_limit"`
	Logging    Logging    `yaml:"logging" json:"logging"`
	Features   Features   `yaml:"features" json:"features"`

	// LoadedFrom records which sources contributed to this
	// configuration, in application order.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Server holds HTTP server configuration.
type Server struct {
	Address         string   `yaml:"address" json:"address" validate:"required"`
	ReadTimeout     Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxRequestBytes int64    `yaml:"max_request_bytes" json:"max_request_bytes" validate:"min=0"`
}

// AWS holds AWS client configuration shared by the DynamoDB store,
// the EventBridge publisher and the websocket entrypoints.
type AWS struct {
	Region            string `yaml:"region" json:"region" validate:"required"`
	DynamoDBTable     string `yaml:"dynamodb_table" json:"dynamodb_table"`
	EventBusName      string `yaml:"event_bus_name" json:"event_bus_name"`
	WebSocketEndpoint string `yaml:"websocket_endpoint" json:"websocket_endpoint"`
	ConnectionsTable  string `yaml:"connections_table" json:"connections_table"`

	// EndpointURL overrides the DynamoDB endpoint, used to point the
	// store at DynamoDB Local during development.
	EndpointURL string `yaml:"endpoint_url" json:"endpoint_url"`
}

// Storage selects the VersionStore adapter.
type Storage struct {
	Backend string `yaml:"backend" json:"backend" validate:"required,oneof=memory dynamodb"`
}

// Versioning holds the tunable knobs of the version engine.
type Versioning struct {
	// SnapshotInterval and SnapshotSizeThreshold feed the automatic
	// snapshot policy: a node is checkpointed when its current version
	// is older than the interval and larger than the threshold.
	SnapshotInterval      Duration `yaml:"snapshot_interval" json:"snapshot_interval"`
	SnapshotSizeThreshold int      `yaml:"snapshot_size_threshold" json:"snapshot_size_threshold" validate:"min=0"`

	// SignificanceEpsilon is the numeric tolerance below which a field
	// change is recorded but not counted as significant.
	SignificanceEpsilon float64 `yaml:"significance_epsilon" json:"significance_epsilon" validate:"min=0"`

	// MaxPayloadBytes bounds the serialized size of a single node
	// payload accepted over HTTP. Zero disables the check.
	MaxPayloadBytes int `yaml:"max_payload_bytes" json:"max_payload_bytes" validate:"min=0"`
}

// Cache configures the in-memory diff cache.
type Cache struct {
	MaxItems int      `yaml:"max_items" json:"max_items" validate:"min=0"`
	MaxBytes int64    `yaml:"max_bytes" json:"max_bytes" validate:"min=0"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
}

// Auth holds authentication configuration.
type Auth struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer" json:"jwt_issuer"`
}

// RateLimit configures the per-client request limiter.
type RateLimit struct {
	RequestsPerMinute int      `yaml:"requests_per_minute" json:"requests_per_minute" validate:"min=0"`
	Burst             int      `yaml:"burst" json:"burst" validate:"min=0"`
	CleanupInterval   Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// Logging holds logger configuration.
type Logging struct {
	Level string `yaml:"level" json:"level" validate:"required,oneof=debug info warn error"`
}

// Features contains feature flags.
type Features struct {
	EnableMetrics       bool `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing       bool `yaml:"enable_tracing" json:"enable_tracing"`
	EnableCORS          bool `yaml:"enable_cors" json:"enable_cors"`
	EnableCaching       bool `yaml:"enable_caching" json:"enable_caching"`
	EnableAutoSnapshots bool `yaml:"enable_auto_snapshots" json:"enable_auto_snapshots"`
}

var validate = validator.New()

// LoadConfig loads configuration from environment variables on top of
// the built-in defaults. File overlays are not consulted; use
// LoadWithLoader for that.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig(environmentFromEnv())
	applyEnvOverrides(cfg)
	cfg.applyEnvironmentDefaults()
	cfg.LoadedFrom = []string{"defaults", "environment"}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field business rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			e := fieldErrs[0]
			return fmt.Errorf("invalid configuration: field %s failed %q validation", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Versioning.SnapshotInterval < 0 {
		return fmt.Errorf("snapshot interval cannot be negative")
	}

	if c.IsProduction() {
		if c.Auth.Enabled && c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production when auth is enabled")
		}
		if c.Storage.Backend != "dynamodb" {
			return fmt.Errorf("storage backend must be dynamodb in production")
		}
		if c.AWS.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required in production")
		}
	}

	if c.Storage.Backend == "dynamodb" && c.AWS.DynamoDBTable == "" {
		return fmt.Errorf("dynamodb storage backend requires a table name")
	}

	return nil
}

// applyEnvironmentDefaults enforces settings that follow from the
// environment rather than from explicit configuration.
func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Production:
		c.Features.EnableMetrics = true
		if c.Logging.Level == "debug" {
			c.Logging.Level = "info"
		}
	case Staging:
		c.Features.EnableMetrics = true
	}
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsLambda reports whether the process runs inside AWS Lambda.
func (c *Config) IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func environmentFromEnv() Environment {
	switch Environment(getEnv("ENVIRONMENT", string(Development))) {
	case Production:
		return Production
	case Staging:
		return Staging
	default:
		return Development
	}
}

// applyEnvOverrides overlays environment variables onto cfg. This is
// the highest-priority configuration source.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = environmentFromEnv()
	}

	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.AWS.Region = getEnv("AWS_REGION", cfg.AWS.Region)
	cfg.AWS.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", cfg.AWS.DynamoDBTable))
	cfg.AWS.EventBusName = getEnv("EVENT_BUS_NAME", cfg.AWS.EventBusName)
	cfg.AWS.WebSocketEndpoint = getEnv("WEBSOCKET_ENDPOINT", cfg.AWS.WebSocketEndpoint)
	cfg.AWS.ConnectionsTable = getEnv("CONNECTIONS_TABLE", cfg.AWS.ConnectionsTable)
	cfg.AWS.EndpointURL = getEnv("DYNAMODB_ENDPOINT", cfg.AWS.EndpointURL)

	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", cfg.Storage.Backend)

	cfg.Versioning.SnapshotInterval = getEnvDuration("SNAPSHOT_INTERVAL", cfg.Versioning.SnapshotInterval)
	cfg.Versioning.SnapshotSizeThreshold = getEnvInt("SNAPSHOT_SIZE_THRESHOLD", cfg.Versioning.SnapshotSizeThreshold)
	cfg.Versioning.SignificanceEpsilon = getEnvFloat("DIFF_EPSILON", cfg.Versioning.SignificanceEpsilon)
	cfg.Versioning.MaxPayloadBytes = getEnvInt("MAX_PAYLOAD_BYTES", cfg.Versioning.MaxPayloadBytes)

	cfg.Cache.MaxItems = getEnvInt("CACHE_MAX_ITEMS", cfg.Cache.MaxItems)
	cfg.Cache.MaxBytes = int64(getEnvInt("CACHE_MAX_BYTES", int(cfg.Cache.MaxBytes)))
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", cfg.Cache.TTL)

	cfg.Auth.Enabled = getEnvBool("ENABLE_AUTH", cfg.Auth.Enabled)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTIssuer = getEnv("JWT_ISSUER", cfg.Auth.JWTIssuer)

	cfg.RateLimit.RequestsPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimit.RequestsPerMinute)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	cfg.Features.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.Features.EnableMetrics)
	cfg.Features.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.Features.EnableTracing)
	cfg.Features.EnableCORS = getEnvBool("ENABLE_CORS", cfg.Features.EnableCORS)
	cfg.Features.EnableCaching = getEnvBool("ENABLE_CACHING", cfg.Features.EnableCaching)
	cfg.Features.EnableAutoSnapshots = getEnvBool("ENABLE_AUTO_SNAPSHOTS", cfg.Features.EnableAutoSnapshots)
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable ("30s", "5m")
// with a default value.
func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return Duration(parsed)
		}
	}
	return defaultValue
}
