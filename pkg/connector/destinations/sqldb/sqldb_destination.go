// Package sqldb implements the relational destination connector. One
// writer serves every dialect; the Dialect supplies the SQL differences.
package sqldb

import (
	"context"
	"database/sql"
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/base"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
	"github.com/ajitpratap0/cinemigrate/pkg/pool"
)

// Destination writes record batches with one multi-row INSERT per batch.
type Destination struct {
	db      *sql.DB
	dialect Dialect
	schema  string
	logger  *zap.Logger
}

var (
	_ core.Destination  = (*Destination)(nil)
	_ core.BatchLimiter = (*Destination)(nil)
)

// NewDestination opens the target store described by cfg and pings it
// under policy. The pool holds a single connection.
func NewDestination(ctx context.Context, cfg config.TargetConfig, policy *base.RetryPolicy, logger *zap.Logger) (*Destination, error) {
	dialect, ok := DialectByName(cfg.Dialect)
	if !ok {
		return nil, etlerrors.Newf(etlerrors.ErrorTypeConfig, "unknown target dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(dialect.DriverName(), dialect.DSN(cfg))
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to open target database").
			WithDetail("dialect", dialect.Name())
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := New(db, dialect, cfg.Schema, logger)
	if err := policy.Execute(ctx, dialect.Name()+"_ping", d.logger, db.PingContext); err != nil {
		_ = db.Close()
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to connect to target database").
			WithDetail("dialect", dialect.Name()).
			WithDetail("host", cfg.Host).
			WithDetail("database", cfg.Database)
	}

	d.logger.Info("target database opened",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", schemaOf(dialect, cfg.Schema)))
	return d, nil
}

// New wraps an open handle. The caller keeps ownership of pool settings.
func New(db *sql.DB, dialect Dialect, schema string, logger *zap.Logger) *Destination {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Destination{
		db:      db,
		dialect: dialect,
		schema:  schema,
		logger:  logger.With(zap.String("component", "sqldb_destination"), zap.String("dialect", dialect.Name())),
	}
}

// BuildInsert renders the single INSERT statement of a batch and its
// arguments in placeholder order.
//
// Example (postgresql, two genres):
//
//	INSERT INTO "content"."genre" (id, name, description, created_at, updated_at)
//	VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10) ON CONFLICT (id) DO NOTHING
func (d *Destination) BuildInsert(entity *models.Entity, records []models.Recordable) (string, []any, error) {
	if len(records) == 0 {
		return "", nil, etlerrors.New(etlerrors.ErrorTypeValidation, "empty batch").
			WithDetail("table", entity.Table)
	}

	width := len(entity.Columns)
	if params := len(records) * width; params > d.dialect.MaxParams() {
		return "", nil, etlerrors.Newf(etlerrors.ErrorTypeValidation,
			"batch of %d rows needs %d parameters, %s allows %d", len(records), params, d.dialect.Name(), d.dialect.MaxParams()).
			WithDetail("table", entity.Table).
			WithDetail("max_batch_size", d.MaxBatchSize(entity))
	}

	sb := pool.BufferPool.Get()
	defer pool.BufferPool.Put(sb)

	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.dialect.Table(d.schema, entity.Table))
	sb.WriteString(" (")
	sb.WriteString(entity.ColumnList())
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*width)
	for i, r := range records {
		if r.Entity() != entity {
			return "", nil, etlerrors.Newf(etlerrors.ErrorTypeValidation,
				"record %d belongs to %s, not %s", i, r.Entity().Table, entity.Table).
				WithDetail("table", entity.Table)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(entity.Placeholders(d.dialect.Placeholders(), i*width+1))
		args = append(args, r.Values()...)
	}

	sb.WriteByte(' ')
	sb.WriteString(d.dialect.OnConflict())
	return sb.String(), args, nil
}

// WriteBatch inserts records in one transaction and commits immediately.
// It returns the number of rows the store inserted; rows whose id already
// exists are skipped by the store. Failures roll back and are returned as
// target_write errors. Nothing is retried.
//
// When the dialect's conflict clause also skips rows colliding on another
// unique key, the ids already present are counted first and any row that
// is neither inserted nor a known id fails the batch.
func (d *Destination) WriteBatch(ctx context.Context, entity *models.Entity, records []models.Recordable) (int64, error) {
	query, args, err := d.BuildInsert(entity, records)
	if err != nil {
		return 0, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, d.writeError(err, "failed to begin transaction", entity, len(records))
	}

	var existing int64
	if d.dialect.ConflictOnAnyKey() {
		if existing, err = d.countExisting(ctx, tx, entity, records); err != nil {
			_ = tx.Rollback()
			return 0, d.writeError(err, "failed to count existing ids", entity, len(records))
		}
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, d.writeError(err, "failed to insert batch", entity, len(records))
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, d.writeError(err, "failed to read affected rows", entity, len(records))
	}

	if skipped := int64(len(records)) - inserted - existing; d.dialect.ConflictOnAnyKey() && skipped > 0 {
		_ = tx.Rollback()
		return 0, etlerrors.Newf(etlerrors.ErrorTypeTargetWrite,
			"%s: %d rows conflict on a unique key other than id", entity.Table, skipped).
			WithDetail("table", entity.Table).
			WithDetail("rows", len(records)).
			WithDetail("skipped_by_other_key", skipped)
	}

	if err := tx.Commit(); err != nil {
		return 0, d.writeError(err, "failed to commit batch", entity, len(records))
	}

	d.logger.Debug("batch written",
		zap.String("table", entity.Table),
		zap.Int("rows", len(records)),
		zap.Int64("inserted", inserted))
	return inserted, nil
}

// countExisting counts the batch ids already present in the target table.
func (d *Destination) countExisting(ctx context.Context, tx *sql.Tx, entity *models.Entity, records []models.Recordable) (int64, error) {
	sb := pool.BufferPool.Get()
	defer pool.BufferPool.Put(sb)

	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(d.dialect.Table(d.schema, entity.Table))
	sb.WriteString(" WHERE id IN (")
	ids := make([]any, len(records))
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		if d.dialect.Placeholders() == models.Dollar {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(i + 1))
		} else {
			sb.WriteByte('?')
		}
		ids[i] = r.ID().String()
	}
	sb.WriteByte(')')

	var n int64
	if err := tx.QueryRowContext(ctx, sb.String(), ids...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the number of rows in the entity's target table.
func (d *Destination) Count(ctx context.Context, entity *models.Entity) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + d.dialect.Table(d.schema, entity.Table)
	if err := d.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, etlerrors.Wrap(err, etlerrors.ErrorTypeTargetWrite, "failed to count target rows").
			WithDetail("table", entity.Table)
	}
	return n, nil
}

// MaxBatchSize is the largest batch of entity that fits one statement.
func (d *Destination) MaxBatchSize(entity *models.Entity) int {
	return d.dialect.MaxParams() / len(entity.Columns)
}

// Close closes the pool.
func (d *Destination) Close() error {
	if err := d.db.Close(); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to close target database")
	}
	return nil
}

func (d *Destination) writeError(err error, message string, entity *models.Entity, rows int) error {
	return etlerrors.Wrap(err, etlerrors.ErrorTypeTargetWrite, message).
		WithDetail("table", entity.Table).
		WithDetail("rows", rows)
}

func schemaOf(dialect Dialect, schema string) string {
	if dialect.Name() == config.DialectSQLite {
		return ""
	}
	return schema
}
