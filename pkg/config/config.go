// Package config provides the configuration of a migration run.
//
// A Config is built once at process start by Load and passed into every
// constructor. Settings are layered, lowest precedence first:
//   - Defaults: the values returned by Default
//   - File: an optional YAML file with ${VAR_NAME} substitution
//   - Environment: the variables listed in EnvBindings, after .env is loaded
//   - Flags: applied by the CLI on top of the loaded Config
//
// Example usage:
//
//	cfg, err := config.Load("cinemigrate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Migration.BatchSize = 500
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
)

// Target dialects.
const (
	DialectPostgreSQL = "postgresql"
	DialectMySQL      = "mysql"
	DialectSQLite     = "sqlite"
)

// Write failure policies.
const (
	// OnWriteErrorAbort stops the run at the first failed batch
	OnWriteErrorAbort = "abort"
	// OnWriteErrorContinue drops the failed batch and moves on
	OnWriteErrorContinue = "continue"
)

// Config is the complete configuration of one run.
type Config struct {
	// Source locates the SQLite file to read
	Source SourceConfig `yaml:"source" mapstructure:"source"`

	// Target describes the relational store to write
	Target TargetConfig `yaml:"target" mapstructure:"target"`

	// Migration controls batching, ordering and failure policy
	Migration MigrationConfig `yaml:"migration" mapstructure:"migration"`

	// Reliability controls connection retries
	Reliability ReliabilityConfig `yaml:"reliability" mapstructure:"reliability"`

	// Logging configures the zap logger
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Observability configures metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// SourceConfig locates the source store.
type SourceConfig struct {
	// Path is the SQLite database file
	Path string `yaml:"path" mapstructure:"path"`
}

// TargetConfig contains the connection settings of the target store.
type TargetConfig struct {
	// Dialect selects the SQL dialect and driver (postgresql, mysql, sqlite)
	Dialect string `yaml:"dialect" mapstructure:"dialect"`
	// Host of the database server
	Host string `yaml:"host" mapstructure:"host"`
	// Port of the database server
	Port int `yaml:"port" mapstructure:"port"`
	// Database name, or the file path for the sqlite dialect
	Database string `yaml:"database" mapstructure:"database"`
	// User to authenticate as
	User string `yaml:"user" mapstructure:"user"`
	// Password of User
	Password string `yaml:"password" mapstructure:"password"`
	// Schema that holds the target tables; empty means the default schema
	Schema string `yaml:"schema" mapstructure:"schema"`
	// SSLMode is passed to PostgreSQL as sslmode
	SSLMode string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// MigrationConfig controls how tables are moved.
type MigrationConfig struct {
	// BatchSize is the number of rows read and written together
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	// OnWriteError is the write failure policy (abort, continue)
	OnWriteError string `yaml:"on_write_error" mapstructure:"on_write_error"`
	// Tables lists the tables to migrate, in order
	Tables []string `yaml:"tables" mapstructure:"tables"`
}

// ReliabilityConfig controls retries when opening connections.
type ReliabilityConfig struct {
	// RetryAttempts is the number of connection attempts
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	// RetryDelay is the delay before the second attempt
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error)
	Level string `yaml:"level" mapstructure:"level"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	// OutputPaths are zap sink URLs or file paths
	OutputPaths []string `yaml:"output_paths" mapstructure:"output_paths"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	// MetricsAddr is the listen address of the /metrics endpoint; empty disables it
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
	// Tracing enables the stdout span exporter
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
}

// Default returns a Config with the defaults of every setting.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Path: "db.sqlite",
		},
		Target: TargetConfig{
			Dialect:  DialectPostgreSQL,
			Host:     "127.0.0.1",
			Port:     5432,
			Database: "movies_database",
			User:     "app",
			Schema:   "content",
			SSLMode:  "disable",
		},
		Migration: MigrationConfig{
			BatchSize:    100,
			OnWriteError: OnWriteErrorAbort,
			Tables:       models.TableNames(models.DefaultOrder),
		},
		Reliability: ReliabilityConfig{
			RetryAttempts: 3,
			RetryDelay:    time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stdout"},
		},
	}
}

// Validate checks the configuration for correctness. It returns an
// etlerrors error of type config naming the first offending key.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.Path) == "" {
		return invalid("source.path", "is required")
	}
	switch c.Target.Dialect {
	case DialectPostgreSQL, DialectMySQL, DialectSQLite:
	default:
		return invalid("target.dialect", fmt.Sprintf("unknown dialect %q", c.Target.Dialect))
	}
	if strings.TrimSpace(c.Target.Database) == "" {
		return invalid("target.database", "is required")
	}
	if c.Target.Dialect != DialectSQLite && (c.Target.Port <= 0 || c.Target.Port > 65535) {
		return invalid("target.port", fmt.Sprintf("out of range: %d", c.Target.Port))
	}
	if c.Migration.BatchSize < 1 {
		return invalid("migration.batch_size", "must be at least 1")
	}
	switch c.Migration.OnWriteError {
	case OnWriteErrorAbort, OnWriteErrorContinue:
	default:
		return invalid("migration.on_write_error", fmt.Sprintf("unknown policy %q", c.Migration.OnWriteError))
	}
	if _, err := c.Entities(); err != nil {
		return err
	}
	if c.Reliability.RetryAttempts < 1 {
		return invalid("reliability.retry_attempts", "must be at least 1")
	}
	if c.Reliability.RetryDelay < 0 {
		return invalid("reliability.retry_delay", "cannot be negative")
	}
	return nil
}

// Entities resolves Migration.Tables into entity descriptors, keeping the
// configured order. An empty list selects every table in default order.
func (c *Config) Entities() ([]*models.Entity, error) {
	if len(c.Migration.Tables) == 0 {
		return models.DefaultOrder, nil
	}

	entities := make([]*models.Entity, 0, len(c.Migration.Tables))
	for _, table := range c.Migration.Tables {
		e, ok := models.Lookup(strings.TrimSpace(table))
		if !ok {
			return nil, invalid("migration.tables", fmt.Sprintf("unknown table %q", table))
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Redacted returns a copy of the configuration safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Target.Password != "" {
		out.Target.Password = "******"
	}
	out.Migration.Tables = append([]string(nil), c.Migration.Tables...)
	out.Logging.OutputPaths = append([]string(nil), c.Logging.OutputPaths...)
	return &out
}

func invalid(key, reason string) error {
	return etlerrors.Newf(etlerrors.ErrorTypeConfig, "%s %s", key, reason).
		WithDetail("key", key)
}
