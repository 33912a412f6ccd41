package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/base"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterSource("sqlite", "SQLite database file, opened read-only",
		func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.Source, error) {
			src, err := NewSource(ctx, cfg.Source.Path, base.RetryPolicyFromConfig(cfg.Reliability), logger)
			if err != nil {
				return nil, err
			}
			return src, nil
		})
}
