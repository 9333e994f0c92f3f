package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Fingerprint storage backends.
const (
	BackendDatabase = "database"
	BackendBadger   = "badger"
)

// Config holds the tastefeed service configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Fingerprints FingerprintsConfig `yaml:"fingerprints"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Recommend    RecommendConfig    `yaml:"recommend"`
	Backfill     BackfillConfig     `yaml:"backfill"`
	Auth         AuthConfig         `yaml:"auth"`
	Storage      StorageConfig      `yaml:"storage"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys" validate:"dive,required"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Valkey/Redis connection used for articles, likes
// and (by default) fingerprints.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs" validate:"required,min=1,dive,hostname_port"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db" validate:"min=0"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// FingerprintsConfig selects where fingerprints live.
type FingerprintsConfig struct {
	Backend  string `yaml:"backend" validate:"oneof=database badger"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// EmbeddingConfig holds encoder settings.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url" validate:"omitempty,url"`
	Model      string        `yaml:"model" validate:"required"`
	User       string        `yaml:"user"`
	TimeoutSec int           `yaml:"timeout_sec"`
	SlowCallMs int           `yaml:"slow_call_ms"`
	Cache      bool          `yaml:"cache"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for encoder calls.
type BreakerConfig struct {
	FailureThreshold uint32 `yaml:"failure_threshold"`
	MaxRequests      uint32 `yaml:"max_requests"`
	IntervalSec      int    `yaml:"interval_sec"`
	OpenTimeoutSec   int    `yaml:"open_timeout_sec"`
}

// RecommendConfig holds recommendation settings.
type RecommendConfig struct {
	DefaultLimit      int          `yaml:"default_limit"`
	MaxLimit          int          `yaml:"max_limit"`
	MinLikes          int          `yaml:"min_likes"`
	MaxLikes          int          `yaml:"max_likes"`
	Clusters          int          `yaml:"clusters"`
	SearchConcurrency int          `yaml:"search_concurrency"`
	KMeans            KMeansConfig `yaml:"kmeans"`
}

// KMeansConfig holds clustering settings.
type KMeansConfig struct {
	Seed      int64   `yaml:"seed"`
	Restarts  int     `yaml:"restarts"`
	MaxIter   int     `yaml:"max_iter"`
	Tolerance float64 `yaml:"tolerance" validate:"min=0"`
}

// BackfillConfig holds backfill job settings.
type BackfillConfig struct {
	Workers int `yaml:"workers"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// ReadTimeout returns the HTTP read timeout.
func (h HTTPConfig) ReadTimeout() time.Duration { return time.Duration(h.ReadTimeoutSec) * time.Second }

// WriteTimeout returns the HTTP write timeout.
func (h HTTPConfig) WriteTimeout() time.Duration { return time.Duration(h.WriteTimeoutSec) * time.Second }

// ShutdownTimeout returns the graceful shutdown timeout.
func (h HTTPConfig) ShutdownTimeout() time.Duration { return time.Duration(h.ShutdownSec) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Fingerprints.Backend == "" {
		c.Fingerprints.Backend = BackendDatabase
	}
	if c.Fingerprints.Backend == BackendBadger && c.Fingerprints.Path == "" && !c.Fingerprints.InMemory {
		c.Fingerprints.Path = "data/fingerprints"
	}
	c.applyEmbeddingDefaults()
	c.applyRecommendDefaults()
	if c.Backfill.Workers <= 0 {
		c.Backfill.Workers = 4
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "tastefeed:"
	}
}

func (c *Config) applyEmbeddingDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}
	if e.SlowCallMs <= 0 {
		e.SlowCallMs = 2000
	}
	if e.Breaker.FailureThreshold == 0 {
		e.Breaker.FailureThreshold = 5
	}
	if e.Breaker.MaxRequests == 0 {
		e.Breaker.MaxRequests = 1
	}
	if e.Breaker.IntervalSec <= 0 {
		e.Breaker.IntervalSec = 60
	}
	if e.Breaker.OpenTimeoutSec <= 0 {
		e.Breaker.OpenTimeoutSec = 15
	}
}

func (c *Config) applyRecommendDefaults() {
	r := &c.Recommend
	if r.DefaultLimit <= 0 {
		r.DefaultLimit = 50
	}
	if r.MaxLimit <= 0 {
		r.MaxLimit = 500
	}
	if r.MinLikes <= 0 {
		r.MinLikes = 5
	}
	if r.MaxLikes <= 0 {
		r.MaxLikes = 100
	}
	if r.Clusters <= 0 {
		r.Clusters = 5
	}
	if r.SearchConcurrency <= 0 {
		r.SearchConcurrency = 4
	}
	if r.KMeans.Seed == 0 {
		r.KMeans.Seed = 42
	}
	if r.KMeans.Restarts <= 0 {
		r.KMeans.Restarts = 10
	}
	if r.KMeans.MaxIter <= 0 {
		r.KMeans.MaxIter = 300
	}
	if r.KMeans.Tolerance == 0 {
		r.KMeans.Tolerance = 1e-4
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value %v)", yamlPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}
	if c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit (%d) exceeds recommend.max_limit (%d)",
			c.Recommend.DefaultLimit, c.Recommend.MaxLimit)
	}
	if c.Fingerprints.Backend == BackendBadger && c.Fingerprints.Path == "" && !c.Fingerprints.InMemory {
		return fmt.Errorf("fingerprints.path is required for the badger backend")
	}
	return nil
}

var fieldToYAML = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// yamlPath turns a validator namespace (Config.HTTP.Port) into a config path (http.port).
func yamlPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		rest = ns
	}
	parts := strings.Split(rest, ".")
	for i, p := range parts {
		switch p {
		case "HTTP":
			parts[i] = "http"
		case "APIKeys":
			parts[i] = "api_keys"
		case "DB":
			parts[i] = "db"
		case "BaseURL":
			parts[i] = "base_url"
		case "KMeans":
			parts[i] = "kmeans"
		default:
			parts[i] = strings.ToLower(fieldToYAML.ReplaceAllString(p, "${1}_${2}"))
		}
	}
	return strings.Join(parts, ".")
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
