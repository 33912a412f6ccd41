package config

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
)

// EnvBinding maps a configuration key to the environment variable that sets it.
type EnvBinding struct {
	Key string
	Env string
}

// EnvBindings lists every environment variable Load reads.
var EnvBindings = []EnvBinding{
	{"source.path", "SQLITE_PATH"},
	{"target.dialect", "DB_DIALECT"},
	{"target.host", "DB_HOST"},
	{"target.port", "DB_PORT"},
	{"target.database", "DB_NAME"},
	{"target.user", "DB_USER"},
	{"target.password", "DB_PASSWORD"},
	{"target.schema", "DB_SCHEMA"},
	{"target.ssl_mode", "DB_SSLMODE"},
	{"migration.batch_size", "BATCH_SIZE"},
	{"migration.on_write_error", "ON_WRITE_ERROR"},
	{"migration.tables", "MIGRATE_TABLES"},
	{"reliability.retry_attempts", "RETRY_ATTEMPTS"},
	{"reliability.retry_delay", "RETRY_DELAY"},
	{"logging.level", "LOG_LEVEL"},
	{"logging.encoding", "LOG_ENCODING"},
	{"logging.output_paths", "LOG_OUTPUT"},
	{"observability.metrics_addr", "METRICS_ADDR"},
	{"observability.tracing", "TRACING_ENABLED"},
}

// Load builds a Config from defaults, the optional YAML file at filePath
// and the environment. An empty filePath skips the file. The result is not
// validated; call Validate once flags have been applied.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	for _, b := range EnvBindings {
		if err := v.BindEnv(b.Key, b.Env); err != nil {
			return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to bind "+b.Env)
		}
	}

	if filePath != "" {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", filePath)
		}

		v.SetConfigType("yaml")
		if err := v.ReadConfig(strings.NewReader(substituteEnvVars(string(data)))); err != nil {
			return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to parse YAML").
				WithDetail("path", filePath)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to decode configuration")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("target.dialect", d.Target.Dialect)
	v.SetDefault("target.host", d.Target.Host)
	v.SetDefault("target.port", d.Target.Port)
	v.SetDefault("target.database", d.Target.Database)
	v.SetDefault("target.user", d.Target.User)
	v.SetDefault("target.password", d.Target.Password)
	v.SetDefault("target.schema", d.Target.Schema)
	v.SetDefault("target.ssl_mode", d.Target.SSLMode)
	v.SetDefault("migration.batch_size", d.Migration.BatchSize)
	v.SetDefault("migration.on_write_error", d.Migration.OnWriteError)
	v.SetDefault("migration.tables", d.Migration.Tables)
	v.SetDefault("reliability.retry_attempts", d.Reliability.RetryAttempts)
	v.SetDefault("reliability.retry_delay", d.Reliability.RetryDelay)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.output_paths", d.Logging.OutputPaths)
	v.SetDefault("observability.metrics_addr", d.Observability.MetricsAddr)
	v.SetDefault("observability.tracing", d.Observability.Tracing)
}

// Dump writes the configuration as YAML with secrets redacted.
func Dump(w io.Writer, cfg *Config) error {
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "failed to marshal YAML")
	}
	if _, err := w.Write(data); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "failed to write configuration")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var sb strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		sb.WriteString(content[:start])
		sb.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	sb.WriteString(content)
	return sb.String()
}
