package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the complete client configuration, loadable from environment
// variables (RESTORAN_ prefix), flags, or YAML config files.
type Config struct {
	APIBaseURL string `usage:"Restaurant API base URL (RESTORAN_API_BASE_URL)" flag:"api-base-url"`
	LogLevel   string `default:"warn" usage:"Log level: debug, info, warn, error" flag:"log-level"`
	Store      StoreConfig
	HTTP       HTTPConfig
}

// StoreConfig selects where the session and cart survive restarts.
type StoreConfig struct {
	Backend   string `default:"file" usage:"Storage backend: file, memory or redis"`
	Path      string `usage:"Directory for the file backend (default: user config dir)"`
	KeyPrefix string `default:"" usage:"Prefix for every stored key" flag:"store-key-prefix"`
	Redis     RedisConfig
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `default:"localhost:6379" usage:"Redis address"`
	DB       int           `default:"0" usage:"Redis database"`
	Password string        `usage:"Redis password"`
	TTL      time.Duration `default:"0" usage:"Expiry of stored records, 0 keeps them forever"`
}

// HTTPConfig controls the API client.
type HTTPConfig struct {
	Timeout   time.Duration `default:"0" usage:"Per-request timeout, 0 means none"`
	RateLimit RateLimitConfig
}

// RateLimitConfig controls the client-side sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"0"  usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// ConfigFiles returns the YAML files consulted in order.
func ConfigFiles() []string {
	files := []string{"restoran.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, "restoran", "config.yaml"))
	}
	return files
}

// LoadConfig loads configuration from environment variables, YAML config
// files and the given command-line arguments.
func LoadConfig(args []string) (*Config, error) {
	return loadConfig(args, ConfigFiles())
}

func loadConfig(args, files []string) (*Config, error) {
	if args == nil {
		// aconfig falls back to os.Args when Args is nil.
		args = []string{}
	}
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "RESTORAN",
		AllowUnknownFields: true,
		AllowUnknownEnvs:   true,
		Args:               args,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills values that depend on the environment.
func (c *Config) applyDefaults() {
	if c.Store.Backend == BackendFile && c.Store.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Store.Path = filepath.Join(dir, "restoran", "state")
		} else {
			c.Store.Path = ".restoran"
		}
	}
}

// Validate checks the configuration for required and consistent values.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API base URL is required: set RESTORAN_API_BASE_URL or -api-base-url")
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return errors.New("store path is required for the file backend")
		}
	case BackendMemory, BackendRedis:
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.HTTP.Timeout < 0 {
		return errors.New("http timeout must not be negative")
	}
	if c.HTTP.RateLimit.Max > 0 && c.HTTP.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}
