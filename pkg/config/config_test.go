package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	t.Setenv("CINEMIGRATE_TEST_PASSWORD", "s3cret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("BATCH_SIZE", "500")
	t.Setenv("MIGRATE_TABLES", "genre,person")
	t.Setenv("RETRY_DELAY", "250ms")

	path := filepath.Join(t.TempDir(), "cinemigrate.yaml")
	content := `
source:
  path: /data/db.sqlite
target:
  dialect: mysql
  host: from-file
  port: 3306
  password: ${CINEMIGRATE_TEST_PASSWORD}
  schema: ""
migration:
  batch_size: 50
  on_write_error: continue
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/db.sqlite", cfg.Source.Path)
	assert.Equal(t, DialectMySQL, cfg.Target.Dialect)
	assert.Equal(t, "db.internal", cfg.Target.Host, "environment overrides the file")
	assert.Equal(t, 3306, cfg.Target.Port)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, "", cfg.Target.Schema)
	assert.Equal(t, "movies_database", cfg.Target.Database)
	assert.Equal(t, 500, cfg.Migration.BatchSize)
	assert.Equal(t, OnWriteErrorContinue, cfg.Migration.OnWriteError)
	assert.Equal(t, []string{"genre", "person"}, cfg.Migration.Tables)
	assert.Equal(t, 250*time.Millisecond, cfg.Reliability.RetryDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeConfig))

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: [unclosed"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
	assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		key    string
	}{
		{"empty source path", func(c *Config) { c.Source.Path = " " }, "source.path"},
		{"unknown dialect", func(c *Config) { c.Target.Dialect = "oracle" }, "target.dialect"},
		{"empty database", func(c *Config) { c.Target.Database = "" }, "target.database"},
		{"bad port", func(c *Config) { c.Target.Port = 0 }, "target.port"},
		{"zero batch size", func(c *Config) { c.Migration.BatchSize = 0 }, "migration.batch_size"},
		{"unknown policy", func(c *Config) { c.Migration.OnWriteError = "retry" }, "migration.on_write_error"},
		{"unknown table", func(c *Config) { c.Migration.Tables = []string{"film_work", "movies"} }, "migration.tables"},
		{"no retry attempts", func(c *Config) { c.Reliability.RetryAttempts = 0 }, "reliability.retry_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeConfig))
			assert.Equal(t, tt.key, etlerrors.DetailsOf(err)["key"])
		})
	}
}

func TestValidateSQLiteIgnoresPort(t *testing.T) {
	cfg := Default()
	cfg.Target.Dialect = DialectSQLite
	cfg.Target.Port = 0
	cfg.Target.Database = "target.sqlite"

	assert.NoError(t, cfg.Validate())
}

func TestEntities(t *testing.T) {
	cfg := Default()
	entities, err := cfg.Entities()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultOrder, entities)

	cfg.Migration.Tables = []string{"person", " film_work "}
	entities, err = cfg.Entities()
	require.NoError(t, err)
	assert.Equal(t, []*models.Entity{models.PersonEntity, models.FilmWorkEntity}, entities)

	cfg.Migration.Tables = nil
	entities, err = cfg.Entities()
	require.NoError(t, err)
	assert.Len(t, entities, 5)
}

func TestDumpRedactsPassword(t *testing.T) {
	cfg := Default()
	cfg.Target.Password = "s3cret"

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, cfg))

	out := buf.String()
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "******")
	assert.Contains(t, out, "batch_size: 100")
	assert.Contains(t, out, "retry_delay: 1s")
	assert.Equal(t, "s3cret", cfg.Target.Password, "dump leaves the original untouched")
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("CINEMIGRATE_A", "alpha")

	assert.Equal(t, "a: alpha, b: ", substituteEnvVars("a: ${CINEMIGRATE_A}, b: ${CINEMIGRATE_UNSET}"))
	assert.Equal(t, "keep ${open", substituteEnvVars("keep ${open"))
}
