package models

import (
	"database/sql"

	"github.com/google/uuid"
)

// Genre is an independent genre entity.
type Genre struct {
	id          uuid.UUID
	name        sql.NullString
	description sql.NullString
	createdAt   sql.NullTime
	updatedAt   sql.NullTime
}

func buildGenre(r *row) Recordable {
	return &Genre{
		id:          r.uuid(0),
		name:        r.nullText(1),
		description: r.nullText(2),
		createdAt:   r.nullTime(3),
		updatedAt:   r.nullTime(4),
	}
}

// Entity returns GenreEntity.
func (g *Genre) Entity() *Entity { return GenreEntity }

// ID returns the genre id.
func (g *Genre) ID() uuid.UUID { return g.id }

// Name returns the genre name.
func (g *Genre) Name() string { return g.name.String }

// Values returns the fields in GenreEntity.Columns order.
func (g *Genre) Values() []any {
	return []any{
		g.id.String(),
		textValue(g.name),
		textValue(g.description),
		timeValue(g.createdAt),
		timeValue(g.updatedAt),
	}
}

// GenreFilmWork links a film work to a genre.
type GenreFilmWork struct {
	id         uuid.UUID
	filmWorkID uuid.UUID
	genreID    uuid.UUID
	createdAt  sql.NullTime
}

func buildGenreFilmWork(r *row) Recordable {
	return &GenreFilmWork{
		id:         r.uuid(0),
		filmWorkID: r.uuid(1),
		genreID:    r.uuid(2),
		createdAt:  r.nullTime(3),
	}
}

// Entity returns GenreFilmWorkEntity.
func (g *GenreFilmWork) Entity() *Entity { return GenreFilmWorkEntity }

// ID returns the link id.
func (g *GenreFilmWork) ID() uuid.UUID { return g.id }

// FilmWorkID returns the linked film work.
func (g *GenreFilmWork) FilmWorkID() uuid.UUID { return g.filmWorkID }

// GenreID returns the linked genre.
func (g *GenreFilmWork) GenreID() uuid.UUID { return g.genreID }

// Values returns the fields in GenreFilmWorkEntity.Columns order.
func (g *GenreFilmWork) Values() []any {
	return []any{
		g.id.String(),
		g.filmWorkID.String(),
		g.genreID.String(),
		timeValue(g.createdAt),
	}
}
