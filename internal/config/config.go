// Package config loads the application configuration from environment
// variables layered over an optional YAML file. Environment values take
// precedence over file values, which take precedence over defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix is the prefix for all environment variables, e.g. ECAP_SERVER_PORT.
const envPrefix = "ECAP"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Telegram TelegramConfig `yaml:"telegram" envconfig:"TELEGRAM"`
	Portal   PortalConfig   `yaml:"portal" envconfig:"PORTAL"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelegramConfig contains the bot front-end configuration.
type TelegramConfig struct {
	Token          string `yaml:"token" envconfig:"TOKEN" validate:"required"`
	PollingTimeout int    `yaml:"polling_timeout" envconfig:"POLLING_TIMEOUT" validate:"gt=0"`
}

// PortalConfig contains everything needed to drive the attendance portal.
type PortalConfig struct {
	LoginURL  string `yaml:"login_url" envconfig:"LOGIN_URL" validate:"url"`
	ReportURL string `yaml:"report_url" envconfig:"REPORT_URL" validate:"url"`

	// DownloadDir is where the browser drops the exported report. The
	// portal offers no completion callback, so export synchronization is
	// a directory poll with an explicit interval, timeout, and non-zero
	// size readiness check.
	DownloadDir     string        `yaml:"download_dir" envconfig:"DOWNLOAD_DIR"`
	Headless        bool          `yaml:"headless" envconfig:"HEADLESS"`
	ElementTimeout  time.Duration `yaml:"element_timeout" envconfig:"ELEMENT_TIMEOUT"`
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT"`
	PollInterval    time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
}

// PipelineConfig contains orchestration and worker pool configuration.
type PipelineConfig struct {
	Workers       int           `yaml:"workers" envconfig:"WORKERS" validate:"gt=0,lte=8"`
	QueueSize     int           `yaml:"queue_size" envconfig:"QUEUE_SIZE" validate:"gte=0"`
	RetryAttempts int           `yaml:"retry_attempts" envconfig:"RETRY_ATTEMPTS" validate:"gt=0"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF"`
}

// StoreConfig contains credential store configuration.
type StoreConfig struct {
	Path string `yaml:"path" envconfig:"PATH"`

	// SealSecret derives the key that seals stored passwords at rest.
	SealSecret string `yaml:"seal_secret" envconfig:"SEAL_SECRET" validate:"required,min=16"`
}

// defaultConfig returns the built-in defaults. File and environment values
// are layered on top, so these only survive where neither source sets a
// field.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/bot.log",
		},
		Telegram: TelegramConfig{
			PollingTimeout: 30,
		},
		Portal: PortalConfig{
			LoginURL:        "https://webprosindia.com/vignanit/Default.aspx",
			ReportURL:       "https://webprosindia.com/vignanit/Academics/studentacadamicregister.aspx?scrid=2",
			DownloadDir:     "data/downloads",
			Headless:        true,
			ElementTimeout:  10 * time.Second,
			DownloadTimeout: 15 * time.Second,
			PollInterval:    500 * time.Millisecond,
		},
		Pipeline: PipelineConfig{
			Workers:       3,
			QueueSize:     6,
			RetryAttempts: 3,
			RetryBackoff:  2 * time.Second,
		},
		Store: StoreConfig{
			Path: "data/users.db",
		},
	}
}

// Load loads configuration from the optional YAML file at path (pass "" to
// look at ECAP_CONFIG_FILE, then ./config.yaml) overridden by environment
// variables, then validates the result. YAML touches only the keys it
// names, and envconfig only the variables actually set, so each layer
// shadows the one below without erasing it.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG_FILE")
	}
	if path == "" {
		path = "config.yaml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Portal.PollInterval >= c.Portal.DownloadTimeout {
		return fmt.Errorf("portal poll_interval (%s) must be shorter than download_timeout (%s)",
			c.Portal.PollInterval, c.Portal.DownloadTimeout)
	}
	return nil
}
