package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeBatch = "batch"
	ModeServe = "serve"

	// ConfigPathEnv names an optional YAML file layered over the defaults.
	ConfigPathEnv = "EXCHANGE_CONFIG"
	envPrefix     = "EXCHANGE_"
)

type Config struct {
	Mode      string          `yaml:"mode" env:"MODE"`
	Resources ResourcesConfig `yaml:"resources" envPrefix:"RESOURCES_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Engine    EngineConfig    `yaml:"engine" envPrefix:"ENGINE_"`
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Journal   JournalConfig   `yaml:"journal" envPrefix:"JOURNAL_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
}

type ResourcesConfig struct {
	Traders string `yaml:"traders" env:"TRADERS"`
	Orders  string `yaml:"orders" env:"ORDERS"`
	// Output receives the final balances; empty means overwrite Traders.
	Output string `yaml:"output" env:"OUTPUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // json or pretty
	File   string `yaml:"file" env:"FILE"`
}

type EngineConfig struct {
	VerifyInvariants bool `yaml:"verify_invariants" env:"VERIFY_INVARIANTS"`
	DefaultDepth     int  `yaml:"default_depth" env:"DEFAULT_DEPTH"`
	MaxDepth         int  `yaml:"max_depth" env:"MAX_DEPTH"`
}

type ServerConfig struct {
	Port                  int           `yaml:"port" env:"PORT"`
	ShutdownTimeout       time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	RateLimitDisabled     bool          `yaml:"rate_limit_disabled" env:"RATE_LIMIT_DISABLED"`
	RateLimitMax          int           `yaml:"rate_limit_max" env:"RATE_LIMIT_MAX"`
	RateLimitWindow       time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW"`
	MaxConcurrentRequests int64         `yaml:"max_concurrent_requests" env:"MAX_CONCURRENT_REQUESTS"`
	MaintenanceMode       bool          `yaml:"maintenance_mode" env:"MAINTENANCE_MODE"`
	RequestLogging        bool          `yaml:"request_logging" env:"REQUEST_LOGGING"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

func Default() Config {
	var c Config
	c.Mode = ModeBatch
	c.Resources.Traders = "./resources/clients.txt"
	c.Resources.Orders = "./resources/orders.txt"
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Engine.VerifyInvariants = false
	c.Engine.DefaultDepth = 10
	c.Engine.MaxDepth = 1000
	c.Server.Port = 8080
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.RateLimitMax = 100
	c.Server.RateLimitWindow = time.Second
	c.Server.RequestLogging = true
	c.Journal.Path = "./resources/journal.db"
	c.Metrics.Enabled = true
	return c
}

// Load layers, in order: defaults, a .env file if present, the YAML file named
// by EXCHANGE_CONFIG, then EXCHANGE_* environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := c.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Mode != ModeBatch && c.Mode != ModeServe {
		return fmt.Errorf("invalid mode %q: want %s or %s", c.Mode, ModeBatch, ModeServe)
	}
	if c.Resources.Traders == "" {
		return fmt.Errorf("resources.traders is required")
	}
	if c.Mode == ModeBatch && c.Resources.Orders == "" {
		return fmt.Errorf("resources.orders is required in batch mode")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	if c.Engine.DefaultDepth <= 0 || c.Engine.MaxDepth < c.Engine.DefaultDepth {
		return fmt.Errorf("invalid depth limits: default %d, max %d", c.Engine.DefaultDepth, c.Engine.MaxDepth)
	}
	return nil
}

// OutputPath is where balances are written after a batch run.
func (c Config) OutputPath() string {
	if c.Resources.Output != "" {
		return c.Resources.Output
	}
	return c.Resources.Traders
}
