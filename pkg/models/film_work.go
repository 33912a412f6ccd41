package models

import (
	"database/sql"

	"github.com/google/uuid"
)

// FilmWorkType is the kind of a film work.
type FilmWorkType string

const (
	FilmWorkTypeMovie  FilmWorkType = "movie"
	FilmWorkTypeTVShow FilmWorkType = "tv_show"
)

// FilmWork is a movie or TV show.
type FilmWork struct {
	id           uuid.UUID
	title        sql.NullString
	description  sql.NullString
	creationDate sql.NullTime
	certificate  sql.NullString
	filePath     sql.NullString
	rating       sql.NullFloat64
	kind         sql.NullString
	createdAt    sql.NullTime
	updatedAt    sql.NullTime
}

func buildFilmWork(r *row) Recordable {
	return &FilmWork{
		id:           r.uuid(0),
		title:        r.nullText(1),
		description:  r.nullText(2),
		creationDate: r.nullTime(3),
		certificate:  r.nullText(4),
		filePath:     r.nullText(5),
		rating:       r.nullFloat(6),
		kind:         r.nullText(7),
		createdAt:    r.nullTime(8),
		updatedAt:    r.nullTime(9),
	}
}

// Entity returns FilmWorkEntity.
func (f *FilmWork) Entity() *Entity { return FilmWorkEntity }

// ID returns the film work id.
func (f *FilmWork) ID() uuid.UUID { return f.id }

// Title returns the title, empty when the source row has none.
func (f *FilmWork) Title() string { return f.title.String }

// Type returns the kind of film work as stored in the source.
func (f *FilmWork) Type() FilmWorkType { return FilmWorkType(f.kind.String) }

// Rating returns the rating and whether it is set.
func (f *FilmWork) Rating() (float64, bool) { return f.rating.Float64, f.rating.Valid }

// Values returns the fields in FilmWorkEntity.Columns order.
func (f *FilmWork) Values() []any {
	return []any{
		f.id.String(),
		textValue(f.title),
		textValue(f.description),
		timeValue(f.creationDate),
		textValue(f.certificate),
		textValue(f.filePath),
		floatValue(f.rating),
		textValue(f.kind),
		timeValue(f.createdAt),
		timeValue(f.updatedAt),
	}
}
