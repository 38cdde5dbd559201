// Package config loads artic settings from defaults, a TOML file, a .env
// file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/Sternrassler/artic-catalog-client/pkg/client"
	"github.com/Sternrassler/artic-catalog-client/pkg/logging"
	"github.com/Sternrassler/artic-catalog-client/pkg/pagination"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultUserAgent identifies the client to the catalog.
const DefaultUserAgent = "artic-catalog-client/0.1 (+https://github.com/Sternrassler/artic-catalog-client)"

// Config is the full application configuration.
type Config struct {
	BaseURL           string `toml:"base_url"`
	UserAgent         string `toml:"user_agent"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Rows              int    `toml:"rows"`

	Redis RedisConfig `toml:"redis"`
	Log   LogConfig   `toml:"log"`
	Proxy ProxyConfig `toml:"proxy"`
}

// RedisConfig configures the shared cache and request budget. An empty URL
// runs without Redis.
type RedisConfig struct {
	URL string `toml:"url"`
	DB  int    `toml:"db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	File   string `toml:"file"`
	Pretty bool   `toml:"pretty"`
}

// ProxyConfig configures the caching proxy.
type ProxyConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:           client.DefaultBaseURL,
		UserAgent:         DefaultUserAgent,
		RequestsPerMinute: 60,
		Rows:              pagination.DefaultRows,
		Log: LogConfig{
			Level: "info",
			File:  "artic.log",
		},
		Proxy: ProxyConfig{
			Addr: ":8080",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/artic/config.toml, or "" when no
// config directory can be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "artic", "config.toml")
}

// Load builds the configuration. A missing file at path is not an error
// when path is the default location. envFiles default to ".env"; missing
// env files are skipped and never override variables already set.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("ARTIC_BASE_URL", &c.BaseURL)
	setString("ARTIC_USER_AGENT", &c.UserAgent)
	setString("REDIS_URL", &c.Redis.URL)
	setString("ARTIC_LOG_LEVEL", &c.Log.Level)
	setString("ARTIC_LOG_FILE", &c.Log.File)

	for key, dst := range map[string]*int{
		"REDIS_DB":   &c.Redis.DB,
		"ARTIC_ROWS": &c.Rows,
		"ARTIC_RPM":  &c.RequestsPerMinute,
	} {
		if err := setInt(key, dst); err != nil {
			return fmt.Errorf("invalid environment: %w", err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL (got %q)", c.BaseURL)
	}
	if c.UserAgent == "" {
		return errors.New("user_agent is required")
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests_per_minute must be >= 1 (got %d)", c.RequestsPerMinute)
	}
	if !slices.Contains(pagination.RowsOptions, c.Rows) {
		return fmt.Errorf("rows must be one of %v (got %d)", pagination.RowsOptions, c.Rows)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis db must be >= 0 (got %d)", c.Redis.DB)
	}
	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("log level must be debug, info, warn or error (got %q)", c.Log.Level)
	}
	return nil
}

// RedisOptions returns client options for the configured Redis, or nil when
// Redis is disabled. A non-zero DB overrides the database in the URL.
func (c Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if c.Redis.DB != 0 {
		opts.DB = c.Redis.DB
	}
	return opts, nil
}

// ClientConfig returns the catalog client configuration for redisClient.
func (c Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(redisClient, c.UserAgent)
	cfg.BaseURL = c.BaseURL
	cfg.RequestsPerMinute = c.RequestsPerMinute
	return cfg
}

// LoggingConfig returns the logger configuration. withFile selects the log
// file as output.
func (c Config) LoggingConfig(withFile bool) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	if withFile {
		cfg.File = c.Log.File
	}
	return cfg
}
