package sqldb

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/base"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/registry"
)

func init() {
	descriptions := map[string]string{
		config.DialectPostgreSQL: "PostgreSQL through pgx, skips duplicates with ON CONFLICT (id) DO NOTHING",
		config.DialectMySQL:      "MySQL, skips duplicates with ON DUPLICATE KEY UPDATE",
		config.DialectSQLite:     "SQLite database file, skips duplicates with ON CONFLICT (id) DO NOTHING",
	}

	for name, description := range descriptions {
		dialect := name
		_ = registry.RegisterDestination(name, description,
			func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.Destination, error) {
				target := cfg.Target
				target.Dialect = dialect
				dst, err := NewDestination(ctx, target, base.RetryPolicyFromConfig(cfg.Reliability), logger)
				if err != nil {
					return nil, err
				}
				return dst, nil
			})
	}
}
