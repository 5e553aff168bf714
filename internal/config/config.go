//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-ecomload.
// Configuration is layered: config file, then a .env file and ECOMLOAD_*
// environment variables, then CLI flags. Credentials are never compiled in.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "ECOMLOAD"

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for pgedge-ecomload.
type Config struct {
	// Database holds the target store connection settings.
	Database DatabaseConfig `mapstructure:"database"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "console" for human readable output or "json".
	LogFormat string `mapstructure:"log_format"`

	// Load holds configuration for the load subcommand.
	Load LoadConfig `mapstructure:"load"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`
}

// DatabaseConfig describes how to reach the target store.
type DatabaseConfig struct {
	// Driver is one of postgres, mysql, sqlite.
	Driver string `mapstructure:"driver"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	// DSN, when set, is used verbatim instead of the discrete fields.
	// For sqlite it is the database file path.
	DSN string `mapstructure:"dsn"`
}

// LoadConfig holds configuration for loading source files.
type LoadConfig struct {
	// DataDir is the directory source files are resolved against.
	DataDir string `mapstructure:"data_dir"`

	// Files overrides the source file name per table.
	Files map[string]string `mapstructure:"files"`

	// CacheLookups memoizes foreign key lookups for the duration of a run.
	CacheLookups bool `mapstructure:"cache_lookups"`

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64 `mapstructure:"progress_interval"`

	// RecordRuns writes each run's report to the ecomload_runs table.
	RecordRuns bool `mapstructure:"record_runs"`
}

// GenerateConfig holds configuration for fixture generation.
type GenerateConfig struct {
	// OutDir is where generated source files are written.
	OutDir string `mapstructure:"out_dir"`

	// Users is the number of users (and addresses) to generate.
	Users int `mapstructure:"users"`

	// Products is the number of catalog products to generate.
	Products int `mapstructure:"products"`

	// Seed makes generation reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  DriverPostgres,
			Host:    "localhost",
			Name:    "ecommerce",
			SSLMode: "prefer",
		},
		LogLevel:  "info",
		LogFormat: "console",
		Load: LoadConfig{
			DataDir:          ".",
			Files:            map[string]string{},
			CacheLookups:     true,
			ProgressInterval: 10000,
			RecordRuns:       true,
		},
		Generate: GenerateConfig{
			OutDir:   ".",
			Users:    100,
			Products: 50,
		},
	}
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-ecomload.yaml
// 3. ~/.config/pgedge-ecomload/config.yaml
//
// A .env file in the working directory is read first; variables already set
// in the environment win over it.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("pgedge-ecomload")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-ecomload"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Load.Files == nil {
		cfg.Load.Files = map[string]string{}
	}

	return cfg, nil
}

// bindEnv registers keys that may only come from the environment, since
// AutomaticEnv alone does not make them visible to Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"database.driver", "database.host", "database.port", "database.name",
		"database.user", "database.password", "database.sslmode", "database.dsn",
		"log_level", "log_format",
		"load.data_dir", "load.cache_lookups", "load.progress_interval", "load.record_runs",
		"generate.out_dir", "generate.users", "generate.products", "generate.seed",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database host or dsn is required")
		}
		if c.Database.DSN == "" && c.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	case DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn (file path) is required for sqlite")
		}
	case "":
		return fmt.Errorf("database driver is required")
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.LogFormat != "" && c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'console' or 'json'")
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Load.ProgressInterval < 0 {
		return fmt.Errorf("progress_interval must be non-negative")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
// It needs no database connection.
func (c *Config) ValidateGenerate() error {
	if c.Generate.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Generate.Users < 1 {
		return fmt.Errorf("users must be at least 1")
	}
	if c.Generate.Products < 1 {
		return fmt.Errorf("products must be at least 1")
	}
	return nil
}

// SourcePath returns the path of the source file for a table, honoring
// per-table overrides. Relative overrides are resolved against DataDir.
func (c *Config) SourcePath(table, defaultFile string) string {
	name := defaultFile
	if override, ok := c.Load.Files[table]; ok && override != "" {
		name = override
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Load.DataDir, name)
}
