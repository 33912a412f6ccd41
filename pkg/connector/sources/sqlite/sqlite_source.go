// Package sqlite implements the read-only SQLite source connector.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/pkg/connector/base"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
)

// Source reads entity tables from a SQLite file opened read-only.
type Source struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ core.Source = (*Source)(nil)

// uriEscaper escapes the characters that end the path of a file: URI.
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// NewSource opens the SQLite file at path and pings it under policy.
// A missing file is a connection error; the file is never created.
func NewSource(ctx context.Context, path string, policy *base.RetryPolicy, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "sqlite_source"), zap.String("path", path))

	if _, err := os.Stat(path); err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "source database not found").
			WithDetail("path", path)
	}

	db, err := sql.Open("sqlite3", "file:"+uriEscaper.Replace(path)+"?mode=ro")
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to open source database").
			WithDetail("path", path)
	}
	db.SetMaxOpenConns(1)

	if err := policy.Execute(ctx, "sqlite_ping", logger, db.PingContext); err != nil {
		_ = db.Close()
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to connect to source database").
			WithDetail("path", path)
	}

	logger.Info("source database opened")
	return &Source{db: db, path: path, logger: logger}, nil
}

// Count returns the number of rows in the entity's table.
func (s *Source) Count(ctx context.Context, entity *models.Entity) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + quoteIdent(entity.Table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, etlerrors.Wrap(err, etlerrors.ErrorTypeSourceRead, "failed to count rows").
			WithDetail("table", entity.Table)
	}
	return n, nil
}

// Open returns a cursor over the entity's table in rowid order.
func (s *Source) Open(entity *models.Entity, batchSize int) core.Cursor {
	if batchSize < 1 {
		batchSize = 1
	}
	return &cursor{
		db:        s.db,
		entity:    entity,
		batchSize: batchSize,
		query:     "SELECT * FROM " + quoteIdent(entity.Table) + " ORDER BY rowid LIMIT ? OFFSET ?",
	}
}

// Close closes the database handle.
func (s *Source) Close() error {
	if err := s.db.Close(); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to close source database")
	}
	return nil
}

// cursor holds the read position of one table.
type cursor struct {
	db        *sql.DB
	entity    *models.Entity
	batchSize int
	query     string
	offset    int64
}

func (c *cursor) Offset() int64 { return c.offset }

func (c *cursor) Next(ctx context.Context) ([]models.Recordable, error) {
	rows, err := c.db.QueryContext(ctx, c.query, c.batchSize, c.offset)
	if err != nil {
		return nil, c.readError(err, "failed to query table")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, c.readError(err, "failed to read column names")
	}
	positions, err := c.positions(columns)
	if err != nil {
		return nil, err
	}

	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	batch := make([]models.Recordable, 0, c.batchSize)
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, c.readError(err, "failed to scan row")
		}

		values := make([]any, len(positions))
		for i, p := range positions {
			values[i] = raw[p]
		}

		record, err := c.entity.FromRow(values)
		if err != nil {
			return nil, err
		}
		batch = append(batch, record)
	}
	if err := rows.Err(); err != nil {
		return nil, c.readError(err, "failed to iterate rows")
	}

	c.offset += int64(len(batch))
	return batch, nil
}

// positions maps each source column of the entity to its index in the
// result set. The target column name is accepted as an alias. A table
// with columns the entity does not know is a record_construction error.
func (c *cursor) positions(columns []string) ([]int, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[strings.ToLower(name)] = i
	}

	positions := make([]int, len(c.entity.SourceColumns))
	for i, name := range c.entity.SourceColumns {
		p, ok := index[name]
		if !ok {
			p, ok = index[c.entity.Columns[i]]
		}
		if !ok {
			return nil, etlerrors.Newf(etlerrors.ErrorTypeSourceRead, "%s: missing column %s", c.entity.Table, name).
				WithDetail("table", c.entity.Table).
				WithDetail("columns", columns)
		}
		positions[i] = p
	}
	if len(columns) != len(c.entity.SourceColumns) {
		return nil, etlerrors.Newf(etlerrors.ErrorTypeRecordConstruction,
			"%s: expected %d columns, got %d", c.entity.Table, len(c.entity.SourceColumns), len(columns)).
			WithDetail("table", c.entity.Table).
			WithDetail("columns", columns)
	}
	return positions, nil
}

func (c *cursor) readError(err error, message string) error {
	return etlerrors.Wrap(err, etlerrors.ErrorTypeSourceRead, message).
		WithDetail("table", c.entity.Table).
		WithDetail("offset", c.offset)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
