package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a directory of layered files.
type Loader struct {
	// basePath is the root directory for configuration files.
	basePath string

	// environment selects the environment-specific overlay file.
	environment Environment

	// sources tracks where configuration was loaded from.
	sources []string

	// fileLoaders maps file extensions to their loaders.
	fileLoaders map[string]FileLoader
}

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a configuration loader rooted at basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = getEnv("CONFIG_DIR", "config")
	}

	loader := &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
		fileLoaders: make(map[string]FileLoader),
	}

	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})

	return loader
}

// RegisterLoader registers a file loader for its extension.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders[loader.Extension()] = loader
}

// Load resolves configuration from all sources. Application order,
// lowest to highest priority:
//  1. Default values (in code)
//  2. Base configuration file (base.yaml)
//  3. Environment-specific file (e.g. production.yaml)
//  4. Local overrides file (local.yaml, development only)
//  5. Environment variables
func (l *Loader) Load() (*Config, error) {
	cfg := defaultConfig(l.environment)
	l.sources = append(l.sources[:0], "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load local config: %v\n", err)
		}
	}

	applyEnvOverrides(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = append([]string(nil), l.sources...)
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads one named layer, trying each registered format.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for ext, loader := range l.fileLoaders {
		filename := fmt.Sprintf("%s.%s", name, ext)
		path := filepath.Join(l.basePath, filename)

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		err = loader.Load(file, cfg)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}

	return os.ErrNotExist
}

// defaultConfig returns the built-in defaults for an environment. The
// application can run from these alone; every other source overlays
// them.
func defaultConfig(env Environment) *Config {
	cfg := &Config{
		Environment: env,
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxRequestBytes: 10 * 1024 * 1024,
		},
		AWS: AWS{
			Region:           "us-east-1",
			DynamoDBTable:    "deepcae-versions-" + strings.ToLower(string(env)),
			EventBusName:     "deepcae-events",
			ConnectionsTable: "deepcae-connections",
		},
		Storage: Storage{
			Backend: "memory",
		},
		Versioning: Versioning{
			SnapshotInterval:      Duration(5 * time.Minute),
			SnapshotSizeThreshold: 1024,
			SignificanceEpsilon:   0.01,
			MaxPayloadBytes:       4 * 1024 * 1024,
		},
		Cache: Cache{
			MaxItems: 1024,
			MaxBytes: 64 * 1024 * 1024,
			TTL:      Duration(5 * time.Minute),
		},
		Auth: Auth{
			Enabled:   env == Production,
			JWTIssuer: "deepcae-backend",
		},
		RateLimit: RateLimit{
			RequestsPerMinute: 120,
			Burst:             20,
			CleanupInterval:   Duration(time.Minute),
		},
		Logging: Logging{
			Level: "info",
		},
		Features: Features{
			EnableMetrics:       env != Development,
			EnableCORS:          true,
			EnableCaching:       true,
			EnableAutoSnapshots: true,
		},
	}

	if env == Development {
		cfg.Logging.Level = "debug"
	}
	if env == Production {
		cfg.Storage.Backend = "dynamodb"
	}

	return cfg
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	return decoder.Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	return decoder.Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

// NewDefaultLoader creates a loader rooted at CONFIG_DIR for the
// environment named by the process environment.
func NewDefaultLoader() *Loader {
	return NewLoader("", environmentFromEnv())
}

// LoadWithLoader loads configuration through the full file hierarchy.
// This is the entrypoint for long-running servers.
func LoadWithLoader() (*Config, error) {
	return NewDefaultLoader().Load()
}

// MustLoadWithLoader loads configuration and panics on error. Use
// only from main.
func MustLoadWithLoader() *Config {
	cfg, err := LoadWithLoader()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
