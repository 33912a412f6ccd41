// Package models provides the record model of the migration: one typed,
// immutable record per source row, and one Entity descriptor per table that
// knows the table's column order and how to build records from positional
// row values.
//
// Records are produced by the source reader and consumed by the destination
// writer. Both depend only on the Recordable interface and *Entity.
package models

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
)

// Recordable is the capability shared by every entity record.
type Recordable interface {
	// Entity returns the descriptor of the table the record belongs to
	Entity() *Entity
	// ID returns the primary key assigned by the source
	ID() uuid.UUID
	// Values returns driver-ready field values in Entity().Columns order
	Values() []any
}

// PlaceholderStyle selects the bind-parameter syntax of the target store.
type PlaceholderStyle int

const (
	// Dollar renders numbered parameters: $1, $2, ...
	Dollar PlaceholderStyle = iota
	// Question renders positional parameters: ?, ?, ...
	Question
)

// Entity describes one migrated table.
type Entity struct {
	// Table is the table name, identical in source and target
	Table string
	// Columns lists target column names in field order
	Columns []string
	// SourceColumns lists source column names in the same order as Columns
	SourceColumns []string
	// References lists tables whose ids this table's rows point to
	References []string

	build func(r *row) Recordable
}

// FromRow materializes one record from positional source values.
// The values must follow SourceColumns order exactly.
func (e *Entity) FromRow(values []any) (Recordable, error) {
	if len(values) != len(e.SourceColumns) {
		return nil, etlerrors.Newf(etlerrors.ErrorTypeRecordConstruction,
			"%s: expected %d columns, got %d", e.Table, len(e.SourceColumns), len(values)).
			WithDetail("table", e.Table)
	}

	r := &row{entity: e, values: values}
	record := e.build(r)
	if r.err != nil {
		return nil, r.err
	}
	return record, nil
}

// ColumnList returns the target columns joined for an INSERT column list.
func (e *Entity) ColumnList() string {
	return strings.Join(e.Columns, ", ")
}

// Placeholders renders one parenthesized row of bind parameters, one per
// column. start is the 1-based index of the first parameter and only
// matters for the Dollar style.
//
// Example:
//
//	models.GenreEntity.Placeholders(models.Dollar, 6) // "($6, $7, $8, $9, $10)"
func (e *Entity) Placeholders(style PlaceholderStyle, start int) string {
	var sb strings.Builder
	sb.Grow(len(e.Columns) * 5)
	sb.WriteByte('(')
	for i := range e.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch style {
		case Dollar:
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(start + i))
		default:
			sb.WriteByte('?')
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// IsJoin reports whether the entity is a join table.
func (e *Entity) IsJoin() bool {
	return len(e.References) > 0
}

var (
	// FilmWorkEntity describes the film_work table
	FilmWorkEntity = &Entity{
		Table: "film_work",
		Columns: []string{"id", "title", "description", "creation_date", "certificate",
			"file_path", "rating", "type", "created_at", "updated_at"},
		SourceColumns: []string{"id", "title", "description", "creation_date", "certificate",
			"file_path", "rating", "type", "created_at", "updated_at"},
		build: buildFilmWork,
	}

	// GenreEntity describes the genre table
	GenreEntity = &Entity{
		Table:         "genre",
		Columns:       []string{"id", "name", "description", "created_at", "updated_at"},
		SourceColumns: []string{"id", "name", "description", "created_at", "updated_at"},
		build:         buildGenre,
	}

	// GenreFilmWorkEntity describes the genre_film_work join table
	GenreFilmWorkEntity = &Entity{
		Table:         "genre_film_work",
		Columns:       []string{"id", "filmwork_id", "genre_id", "created_at"},
		SourceColumns: []string{"id", "film_work_id", "genre_id", "created_at"},
		References:    []string{"film_work", "genre"},
		build:         buildGenreFilmWork,
	}

	// PersonEntity describes the person table
	PersonEntity = &Entity{
		Table:         "person",
		Columns:       []string{"id", "full_name", "birth_date", "created_at", "updated_at"},
		SourceColumns: []string{"id", "full_name", "birth_date", "created_at", "updated_at"},
		build:         buildPerson,
	}

	// PersonFilmWorkEntity describes the person_film_work join table
	PersonFilmWorkEntity = &Entity{
		Table:         "person_film_work",
		Columns:       []string{"id", "filmwork_id", "person_id", "role", "created_at"},
		SourceColumns: []string{"id", "film_work_id", "person_id", "role", "created_at"},
		References:    []string{"film_work", "person"},
		build:         buildPersonFilmWork,
	}
)

// DefaultOrder is the migration order. Join tables follow the tables they reference.
var DefaultOrder = []*Entity{
	FilmWorkEntity,
	GenreEntity,
	GenreFilmWorkEntity,
	PersonEntity,
	PersonFilmWorkEntity,
}

// Lookup returns the entity for a table name.
func Lookup(table string) (*Entity, bool) {
	for _, e := range DefaultOrder {
		if e.Table == table {
			return e, true
		}
	}
	return nil, false
}

// TableNames returns the table names of entities in order.
func TableNames(entities []*Entity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Table
	}
	return names
}
