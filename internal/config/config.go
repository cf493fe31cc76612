// Package config holds all wikiguess configuration.
// Configuration is loaded from a YAML file with environment variable
// overrides layered on top; a missing file yields the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Display modes for the web front end.
const (
	ModeGuess   = "GUESS"
	ModeNoGuess = "NOGUESS"
)

// Config holds all wikiguess configuration.
type Config struct {
	// Server settings for the web front end
	Server ServerConfig `yaml:"server"`

	// Reports describes the on-disk report layout
	Reports ReportsConfig `yaml:"reports"`

	// S3 configures asset serving and the migration target
	S3 S3Config `yaml:"s3"`

	// Migration tuning for the imgur copy job
	Migration MigrationConfig `yaml:"migration"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// Mode is GUESS or NOGUESS
	Mode string `yaml:"mode"`

	// Basic auth credentials; auth is enforced only when both are set
	AuthUser     string `yaml:"auth_user"`
	AuthPassword string `yaml:"auth_password"`

	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ReportsConfig describes where test reports live on disk.
type ReportsConfig struct {
	// StaticRoot is the directory served at /static/; reports live
	// under StaticRoot/report/<testname>/
	StaticRoot string `yaml:"static_root"`

	// InterestingTests is the hand-picked ordering named "interesting"
	InterestingTests []string `yaml:"interesting_tests"`
}

// S3Config configures the bucket used for static assets and migrated
// screenshots. An empty bucket disables S3 serving entirely.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
}

// MigrationConfig tunes the imgur to S3 migration job.
type MigrationConfig struct {
	ProgressFile string `yaml:"progress_file"`
	ReportFile   string `yaml:"report_file"`
	LookupFile   string `yaml:"lookup_file"`

	MaxRetries  int    `yaml:"max_retries"`
	Timeout     string `yaml:"timeout"`
	Delay       string `yaml:"delay"`
	Concurrency int    `yaml:"concurrency"`
	UserAgent   string `yaml:"user_agent"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5001",
			Mode:            ModeGuess,
			ReadTimeout:     "10s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
		},
		Reports: ReportsConfig{
			StaticRoot: "static",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Migration: MigrationConfig{
			ProgressFile: "migration_progress.json",
			ReportFile:   "migration_report.json",
			LookupFile:   "imgur_to_s3_lookup.json",
			MaxRetries:   3,
			Timeout:      "30s",
			Delay:        "100ms",
			Concurrency:  1,
			UserAgent:    "Mozilla/5.0 (compatible; WikiGuess-Imgur-Migration/1.0)",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file returns the defaults with env overrides applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides layers environment variables over the loaded config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WIKIGUESS_BUCKET"); v != "" {
		c.S3.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.S3.Region = v
	}
	if v := os.Getenv("WIKIGUESS_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := os.Getenv("WIKIGUESS_AUTH_USER"); v != "" {
		c.Server.AuthUser = v
	}
	if v := os.Getenv("WIKIGUESS_AUTH_PASSWORD"); v != "" {
		c.Server.AuthPassword = v
	}
	if v := os.Getenv("WIKIGUESS_STATIC_ROOT"); v != "" {
		c.Reports.StaticRoot = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Mode != ModeGuess && c.Server.Mode != ModeNoGuess {
		return fmt.Errorf("invalid mode %q (want %s or %s)", c.Server.Mode, ModeGuess, ModeNoGuess)
	}
	if c.Reports.StaticRoot == "" {
		return fmt.Errorf("static_root must be set")
	}
	if (c.Server.AuthUser == "") != (c.Server.AuthPassword == "") {
		return fmt.Errorf("auth_user and auth_password must be set together")
	}
	if c.Migration.MaxRetries < 1 {
		return fmt.Errorf("migration max_retries must be at least 1")
	}
	if c.Migration.Concurrency < 1 {
		return fmt.Errorf("migration concurrency must be at least 1")
	}
	return nil
}

// ReportRoot returns the directory holding per-test report directories.
func (c *Config) ReportRoot() string {
	return filepath.Join(c.Reports.StaticRoot, "report")
}

// OrderRoot returns the directory holding custom ordering files.
func (c *Config) OrderRoot() string {
	return filepath.Join(c.Reports.StaticRoot, "order")
}

// GetMigrationTimeout returns the per-download timeout as a duration.
func (c *Config) GetMigrationTimeout() time.Duration {
	return parseDuration(c.Migration.Timeout, 30*time.Second)
}

// GetMigrationDelay returns the inter-request delay as a duration.
func (c *Config) GetMigrationDelay() time.Duration {
	return parseDuration(c.Migration.Delay, 100*time.Millisecond)
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the server write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 30*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
