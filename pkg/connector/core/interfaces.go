// Package core defines the contracts between the migration pipeline and
// its connectors.
package core

import (
	"context"

	"github.com/ajitpratap0/cinemigrate/pkg/models"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// Source is the interface that all source connectors must implement
type Source interface {
	// Count returns the number of rows in the table
	Count(ctx context.Context, entity *models.Entity) (int64, error)
	// Open returns a fresh cursor over the table, starting at offset zero
	Open(entity *models.Entity, batchSize int) Cursor
	// Close releases the underlying connection
	Close() error
}

// Cursor reads one table in fixed-size batches. A cursor belongs to a
// single table loop and is never shared.
type Cursor interface {
	// Next reads the next batch and advances the offset by its length.
	// An empty batch means the table is exhausted.
	Next(ctx context.Context) ([]models.Recordable, error)
	// Offset returns the number of rows consumed so far
	Offset() int64
}

// Destination is the interface that all destination connectors must implement
type Destination interface {
	// WriteBatch inserts records of entity in one transaction and returns
	// the number of rows inserted. Rows whose id already exists are skipped.
	WriteBatch(ctx context.Context, entity *models.Entity, records []models.Recordable) (int64, error)
	// Count returns the number of rows in the target table
	Count(ctx context.Context, entity *models.Entity) (int64, error)
	// Close releases the underlying connection
	Close() error
}

// BatchLimiter is implemented by destinations that bound the rows per
// statement, typically by the driver's bind-parameter limit.
type BatchLimiter interface {
	MaxBatchSize(entity *models.Entity) int
}
