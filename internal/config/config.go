// ABOUTME: Configuration loading for the sqlite-helper CLI
// ABOUTME: Supports YAML and TOML files with env expansion and env overrides

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	sqlitehelper "github.com/PandaDriver156/sqlite-helper"
)

// Config is the complete CLI configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// DatabaseConfig holds the table handle configuration.
type DatabaseConfig struct {
	Table    string            `yaml:"table" toml:"table" env:"SQLITE_HELPER_TABLE"`
	Dir      string            `yaml:"dir" toml:"dir" env:"SQLITE_HELPER_DIR"`
	Filename string            `yaml:"filename" toml:"filename" env:"SQLITE_HELPER_FILENAME"`
	Columns  map[string]string `yaml:"columns" toml:"columns"`
	// Caching defaults to true when left unset in the file.
	Caching  *bool `yaml:"caching" toml:"caching" env:"SQLITE_HELPER_CACHING"`
	FetchAll bool  `yaml:"fetch_all" toml:"fetch_all" env:"SQLITE_HELPER_FETCH_ALL"`
	WAL      bool  `yaml:"wal" toml:"wal" env:"SQLITE_HELPER_WAL"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" env:"SQLITE_HELPER_LOG_LEVEL"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{}
}

// Load reads a configuration file and returns the parsed Config. The format
// is chosen by extension: .toml is parsed as TOML, everything else as YAML.
// ${VAR_NAME} references in the raw file are expanded from the environment
// first, then SQLITE_HELPER_* environment variables override individual
// fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if filepath.Ext(path) == ".toml" {
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from SQLITE_HELPER_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	if c.Database.FetchAll && c.Database.Caching != nil && !*c.Database.Caching {
		return fmt.Errorf("database.fetch_all requires database.caching")
	}
	return nil
}

// Options maps the database section onto table handle options, applying the
// caching-on default.
func (c *Config) Options() sqlitehelper.Options {
	opts := sqlitehelper.DefaultOptions()
	if c.Database.Table != "" {
		opts.Table = c.Database.Table
	}
	if c.Database.Dir != "" {
		opts.Dir = c.Database.Dir
	}
	if c.Database.Filename != "" {
		opts.Filename = c.Database.Filename
	}
	opts.Columns = c.Database.Columns
	if c.Database.Caching != nil {
		opts.Caching = *c.Database.Caching
	}
	opts.FetchAll = c.Database.FetchAll
	opts.WAL = c.Database.WAL
	return opts
}
