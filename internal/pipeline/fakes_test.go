package pipeline

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
	"github.com/ajitpratap0/cinemigrate/pkg/testutil"
)

// memorySource serves generated genre and person rows from memory.
type memorySource struct {
	rows      map[string][]models.Recordable
	failTable string // Next fails for this table
	shortBy   int    // Count overstates every table by this many rows
}

func newMemorySource(genres, persons int) *memorySource {
	s := &memorySource{rows: map[string][]models.Recordable{}}
	for i := 0; i < genres; i++ {
		r, err := models.GenreEntity.FromRow([]any{testutil.RowID("genre", i).String(), fmt.Sprintf("Genre %d", i), nil, nil, nil})
		if err != nil {
			panic(err)
		}
		s.rows["genre"] = append(s.rows["genre"], r)
	}
	for i := 0; i < persons; i++ {
		r, err := models.PersonEntity.FromRow([]any{testutil.RowID("person", i).String(), fmt.Sprintf("Person %d", i), nil, nil, nil})
		if err != nil {
			panic(err)
		}
		s.rows["person"] = append(s.rows["person"], r)
	}
	return s
}

func (s *memorySource) Count(_ context.Context, e *models.Entity) (int64, error) {
	return int64(len(s.rows[e.Table]) + s.shortBy), nil
}

func (s *memorySource) Open(e *models.Entity, batchSize int) core.Cursor {
	return &memoryCursor{src: s, entity: e, batchSize: batchSize}
}

func (s *memorySource) Close() error { return nil }

type memoryCursor struct {
	src       *memorySource
	entity    *models.Entity
	batchSize int
	offset    int64
}

func (c *memoryCursor) Offset() int64 { return c.offset }

func (c *memoryCursor) Next(context.Context) ([]models.Recordable, error) {
	if c.entity.Table == c.src.failTable {
		return nil, etlerrors.New(etlerrors.ErrorTypeSourceRead, "disk I/O error").WithDetail("table", c.entity.Table)
	}
	rows := c.src.rows[c.entity.Table]
	start := int(c.offset)
	if start >= len(rows) {
		return nil, nil
	}
	end := start + c.batchSize
	if end > len(rows) {
		end = len(rows)
	}
	c.offset = int64(end)
	return rows[start:end], nil
}

// memoryDestination stores ids per table and skips ids it has seen.
type memoryDestination struct {
	ids      map[string]map[string]bool
	batches  map[string][]int
	failOn   map[string]int // 1-based batch number of a table that fails
	failWith error
}

func newMemoryDestination() *memoryDestination {
	return &memoryDestination{
		ids:     map[string]map[string]bool{},
		batches: map[string][]int{},
		failOn:  map[string]int{},
	}
}

func (d *memoryDestination) WriteBatch(_ context.Context, e *models.Entity, records []models.Recordable) (int64, error) {
	d.batches[e.Table] = append(d.batches[e.Table], len(records))
	if n, ok := d.failOn[e.Table]; ok && n == len(d.batches[e.Table]) {
		if d.failWith != nil {
			return 0, d.failWith
		}
		return 0, etlerrors.New(etlerrors.ErrorTypeTargetWrite, "duplicate key value violates unique constraint").
			WithDetail("table", e.Table)
	}

	if d.ids[e.Table] == nil {
		d.ids[e.Table] = map[string]bool{}
	}
	var inserted int64
	for _, r := range records {
		id := r.ID().String()
		if !d.ids[e.Table][id] {
			d.ids[e.Table][id] = true
			inserted++
		}
	}
	return inserted, nil
}

func (d *memoryDestination) Count(_ context.Context, e *models.Entity) (int64, error) {
	return int64(len(d.ids[e.Table])), nil
}

func (d *memoryDestination) Close() error { return nil }

// limitedDestination reports a batch limit.
type limitedDestination struct {
	*memoryDestination
	limit int
}

func (d limitedDestination) MaxBatchSize(*models.Entity) int { return d.limit }
