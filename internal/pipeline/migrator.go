// Package pipeline orchestrates a migration: it moves every configured
// table from a source to a destination, one batch at a time.
//
// # Overview
//
// For each table, in order, the Migrator counts the source rows, opens a
// cursor and repeats read-batch, write-batch until the count is reached.
// Everything runs on the calling goroutine. No transaction spans more than
// one batch.
//
// # Failure policy
//
// Read failures abort the run; later tables are not touched. Write failures
// are logged with table, offset and batch size, then either abort the run
// (the default) or drop the batch and continue, depending on Config.
//
// # Basic Usage
//
//	m, err := pipeline.NewMigrator(source, destination, pipeline.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	report, err := m.Run(ctx)
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/metrics"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
	"github.com/ajitpratap0/cinemigrate/pkg/observability"
)

// Config contains the parameters of one migration run.
type Config struct {
	Order        []*models.Entity // Tables to migrate, in order
	BatchSize    int              // Rows per read and per INSERT
	OnWriteError string           // config.OnWriteErrorAbort or config.OnWriteErrorContinue
}

// DefaultConfig migrates all five tables in batches of 100 and aborts on
// the first write failure.
func DefaultConfig() *Config {
	return &Config{
		Order:        models.DefaultOrder,
		BatchSize:    100,
		OnWriteError: config.OnWriteErrorAbort,
	}
}

// ConfigFrom derives the pipeline configuration from the run configuration.
func ConfigFrom(cfg *config.Config) (*Config, error) {
	order, err := cfg.Entities()
	if err != nil {
		return nil, err
	}
	return &Config{
		Order:        order,
		BatchSize:    cfg.Migration.BatchSize,
		OnWriteError: cfg.Migration.OnWriteError,
	}, nil
}

// Option customizes a Migrator.
type Option func(*Migrator)

// WithMetrics records rows and batch latency on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Migrator) { m.metrics = c }
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(m *Migrator) { m.tracer = t }
}

// Migrator moves records from a source to a destination.
type Migrator struct {
	source      core.Source
	destination core.Destination
	config      Config
	logger      *zap.Logger
	metrics     *metrics.Collector
	tracer      trace.Tracer
}

// NewMigrator validates cfg against the destination and returns a Migrator.
// A nil cfg selects DefaultConfig. An invalid table order, batch size or
// write policy is a validation error.
func NewMigrator(source core.Source, destination core.Destination, cfg *Config, logger *zap.Logger, opts ...Option) (*Migrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.Order == nil {
		c.Order = models.DefaultOrder
	}
	if c.OnWriteError == "" {
		c.OnWriteError = config.OnWriteErrorAbort
	}

	if c.BatchSize < 1 {
		return nil, etlerrors.Newf(etlerrors.ErrorTypeValidation, "batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.OnWriteError != config.OnWriteErrorAbort && c.OnWriteError != config.OnWriteErrorContinue {
		return nil, etlerrors.Newf(etlerrors.ErrorTypeValidation, "unknown write failure policy %q", c.OnWriteError)
	}
	if err := ValidateOrder(c.Order); err != nil {
		return nil, err
	}
	if limiter, ok := destination.(core.BatchLimiter); ok {
		for _, e := range c.Order {
			if limit := limiter.MaxBatchSize(e); c.BatchSize > limit {
				return nil, etlerrors.Newf(etlerrors.ErrorTypeValidation,
					"batch size %d exceeds the destination limit of %d rows for %s", c.BatchSize, limit, e.Table).
					WithDetail("table", e.Table).
					WithDetail("max_batch_size", limit)
			}
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Migrator{
		source:      source,
		destination: destination,
		config:      c,
		logger:      logger.With(zap.String("component", "migrator")),
		tracer:      observability.Tracer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ValidateOrder rejects empty and duplicate orders, and any join table
// placed before a table it references when that table is part of the run.
func ValidateOrder(order []*models.Entity) error {
	if len(order) == 0 {
		return etlerrors.New(etlerrors.ErrorTypeValidation, "no tables to migrate")
	}

	position := make(map[string]int, len(order))
	for i, e := range order {
		if _, dup := position[e.Table]; dup {
			return etlerrors.Newf(etlerrors.ErrorTypeValidation, "table %s listed twice", e.Table).
				WithDetail("table", e.Table)
		}
		position[e.Table] = i
	}

	for i, e := range order {
		for _, ref := range e.References {
			if j, ok := position[ref]; ok && j > i {
				return etlerrors.Newf(etlerrors.ErrorTypeValidation,
					"table %s references %s and must be migrated after it", e.Table, ref).
					WithDetail("table", e.Table).
					WithDetail("references", ref)
			}
		}
	}
	return nil
}

// Run migrates every table in order. The report covers every table that
// was started, including the one that failed. The returned error is the
// first failure that stopped the run.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	m.logger.Info("migration started",
		zap.Strings("tables", models.TableNames(m.config.Order)),
		zap.Int("batch_size", m.config.BatchSize),
		zap.String("on_write_error", m.config.OnWriteError))

	for _, entity := range m.config.Order {
		table, err := m.migrateTable(ctx, entity)
		report.Tables = append(report.Tables, table)
		if err != nil {
			report.Duration = time.Since(report.StartedAt)
			m.logger.Error("migration aborted", zap.String("table", entity.Table), zap.Error(err))
			return report, err
		}
	}

	report.Duration = time.Since(report.StartedAt)
	totals := report.Totals()
	m.logger.Info("migration finished",
		zap.Int64("rows_read", totals.RowsRead),
		zap.Int64("rows_inserted", totals.RowsInserted),
		zap.Int64("rows_skipped", totals.RowsSkipped),
		zap.Int("failed_batches", totals.FailedBatches),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (m *Migrator) migrateTable(ctx context.Context, entity *models.Entity) (table TableReport, err error) {
	start := time.Now()
	table.Table = entity.Table
	log := m.logger.With(zap.String("table", entity.Table))

	ctx, span := observability.StartSpan(ctx, m.tracer, "migrate "+entity.Table,
		attribute.String("table", entity.Table))
	defer func() {
		table.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int64("rows_read", table.RowsRead),
			attribute.Int64("rows_inserted", table.RowsInserted))
		observability.EndSpan(span, err)
	}()

	count, err := m.source.Count(ctx, entity)
	if err != nil {
		return table, err
	}
	table.SourceCount = count

	cursor := m.source.Open(entity, m.config.BatchSize)
	for cursor.Offset() < count {
		if err := ctx.Err(); err != nil {
			return table, etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "migration cancelled").
				WithDetail("table", entity.Table).
				WithDetail("offset", cursor.Offset())
		}

		if err := m.migrateBatch(ctx, entity, cursor, &table, log); err != nil {
			return table, err
		}
	}

	log.Info("table migrated",
		zap.Int64("source_count", table.SourceCount),
		zap.Int64("rows_inserted", table.RowsInserted),
		zap.Int64("rows_skipped", table.RowsSkipped),
		zap.Int("failed_batches", table.FailedBatches),
		zap.Duration("duration", time.Since(start)))
	return table, nil
}

// migrateBatch reads one batch and hands it straight to the destination.
// It returns an error only when the run must stop.
func (m *Migrator) migrateBatch(ctx context.Context, entity *models.Entity, cursor core.Cursor, table *TableReport, log *zap.Logger) (err error) {
	offset := cursor.Offset()
	ctx, span := observability.StartSpan(ctx, m.tracer, "batch "+entity.Table,
		attribute.String("table", entity.Table),
		attribute.Int64("offset", offset))
	defer func() { observability.EndSpan(span, err) }()

	readStart := time.Now()
	batch, err := cursor.Next(ctx)
	m.metrics.ObserveBatch(entity.Table, metrics.StageRead, time.Since(readStart))
	if err != nil {
		m.metrics.BatchFailed(entity.Table, metrics.StageRead)
		return err
	}
	if len(batch) == 0 {
		m.metrics.BatchFailed(entity.Table, metrics.StageRead)
		return etlerrors.Newf(etlerrors.ErrorTypeSourceRead,
			"%s: source returned no rows at offset %d of %d", entity.Table, offset, table.SourceCount).
			WithDetail("table", entity.Table).
			WithDetail("offset", offset)
	}
	table.RowsRead += int64(len(batch))
	m.metrics.RowsRead(entity.Table, len(batch))
	span.SetAttributes(attribute.Int("size", len(batch)))

	writeStart := time.Now()
	inserted, err := m.destination.WriteBatch(ctx, entity, batch)
	m.metrics.ObserveBatch(entity.Table, metrics.StageWrite, time.Since(writeStart))
	if err != nil {
		m.metrics.BatchFailed(entity.Table, metrics.StageWrite)
		table.FailedBatches++
		table.FailedRows += int64(len(batch))
		log.Error("batch write failed",
			zap.Int64("offset", offset),
			zap.Int("batch_size", len(batch)),
			zap.String("policy", m.config.OnWriteError),
			zap.Error(err))

		if m.config.OnWriteError == config.OnWriteErrorAbort || etlerrors.IsFatal(err) {
			return err
		}
		return nil
	}

	skipped := int64(len(batch)) - inserted
	table.RowsInserted += inserted
	table.RowsSkipped += skipped
	m.metrics.RowsWritten(entity.Table, inserted, skipped)

	log.Debug("batch migrated",
		zap.Int64("offset", offset),
		zap.Int("batch_size", len(batch)),
		zap.Int64("inserted", inserted),
		zap.Int64("skipped", skipped))
	return nil
}

// TableCount compares the row counts of one table.
type TableCount struct {
	Table  string `json:"table"`
	Source int64  `json:"source"`
	Target int64  `json:"target"`
}

// Match reports whether both sides hold the same number of rows.
func (c TableCount) Match() bool { return c.Source == c.Target }

// Verify counts every configured table on both sides.
func (m *Migrator) Verify(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(m.config.Order))
	for _, entity := range m.config.Order {
		src, err := m.source.Count(ctx, entity)
		if err != nil {
			return counts, err
		}
		dst, err := m.destination.Count(ctx, entity)
		if err != nil {
			return counts, err
		}

		c := TableCount{Table: entity.Table, Source: src, Target: dst}
		counts = append(counts, c)
		if !c.Match() {
			m.logger.Warn("row count mismatch",
				zap.String("table", entity.Table),
				zap.Int64("source", src),
				zap.Int64("target", dst))
		}
	}
	return counts, nil
}

func (c TableCount) String() string {
	return fmt.Sprintf("%s: source=%d target=%d", c.Table, c.Source, c.Target)
}
