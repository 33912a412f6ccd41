package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
)

const (
	filmID   = "3d825f60-9fff-4dfe-b294-1a45fa1e115d"
	genreID  = "120a21cf-9097-479e-904a-13dd7198c1dd"
	personID = "26e83050-29ef-4163-a99d-b546cac208f8"
	linkID   = "b7a1c3f0-5e1d-4b0c-8c39-6a0f3c2b9d11"
)

func TestEntityShapes(t *testing.T) {
	for _, e := range DefaultOrder {
		t.Run(e.Table, func(t *testing.T) {
			assert.Len(t, e.SourceColumns, len(e.Columns))
			assert.Equal(t, "id", e.Columns[0])
			assert.NotNil(t, e.build)
		})
	}

	assert.Equal(t, []string{"film_work", "genre", "genre_film_work", "person", "person_film_work"},
		TableNames(DefaultOrder))
	assert.False(t, FilmWorkEntity.IsJoin())
	assert.True(t, PersonFilmWorkEntity.IsJoin())
}

func TestLookup(t *testing.T) {
	e, ok := Lookup("person")
	require.True(t, ok)
	assert.Same(t, PersonEntity, e)

	_, ok = Lookup("movies")
	assert.False(t, ok)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "($1, $2, $3, $4)", GenreFilmWorkEntity.Placeholders(Dollar, 1))
	assert.Equal(t, "($6, $7, $8, $9, $10)", GenreEntity.Placeholders(Dollar, 6))
	assert.Equal(t, "(?, ?, ?, ?, ?)", PersonEntity.Placeholders(Question, 11))
	assert.Equal(t, "id, filmwork_id, person_id, role, created_at", PersonFilmWorkEntity.ColumnList())
}

func TestFilmWorkFromRow(t *testing.T) {
	created := time.Date(2021, 6, 16, 20, 14, 9, 221838000, time.UTC)

	record, err := FilmWorkEntity.FromRow([]any{
		filmID, "Star Wars", nil, "1977-05-25", nil, nil,
		8.6, "movie", created, "2021-06-16 20:14:09.221855+00",
	})
	require.NoError(t, err)

	film, ok := record.(*FilmWork)
	require.True(t, ok)
	assert.Equal(t, filmID, film.ID().String())
	assert.Equal(t, "Star Wars", film.Title())
	assert.Equal(t, FilmWorkTypeMovie, film.Type())
	rating, set := film.Rating()
	assert.True(t, set)
	assert.Equal(t, 8.6, rating)

	values := film.Values()
	require.Len(t, values, len(FilmWorkEntity.Columns))
	assert.Equal(t, filmID, values[0])
	assert.Nil(t, values[2])
	assert.Equal(t, time.Date(1977, 5, 25, 0, 0, 0, 0, time.UTC), values[3])
	assert.Nil(t, values[4])
	assert.Equal(t, 8.6, values[6])
	assert.Equal(t, "movie", values[7])
	assert.Equal(t, created, values[8])

	updated, ok := values[9].(time.Time)
	require.True(t, ok)
	assert.True(t, updated.Equal(time.Date(2021, 6, 16, 20, 14, 9, 221855000, time.UTC)))
}

func TestFilmWorkCarriesValuesAsIs(t *testing.T) {
	record, err := FilmWorkEntity.FromRow([]any{
		filmID, "Odd", "", nil, "", "", int64(-1), "documentary", nil, nil,
	})
	require.NoError(t, err)

	values := record.Values()
	assert.Equal(t, "", values[2])
	assert.Equal(t, float64(-1), values[6])
	assert.Equal(t, "documentary", values[7])
}

func TestNullTextIsLeftToTheTarget(t *testing.T) {
	film, err := FilmWorkEntity.FromRow([]any{filmID, nil, nil, nil, nil, nil, nil, nil, nil, nil})
	require.NoError(t, err)
	assert.Equal(t, "", film.(*FilmWork).Title())
	assert.Nil(t, film.Values()[1], "a NULL title is written as NULL")
	assert.Nil(t, film.Values()[7])

	person, err := PersonEntity.FromRow([]any{personID, nil, nil, nil, nil})
	require.NoError(t, err)
	assert.Nil(t, person.Values()[1])

	link, err := PersonFilmWorkEntity.FromRow([]any{linkID, filmID, personID, nil, nil})
	require.NoError(t, err)
	assert.Nil(t, link.Values()[3])
}

func TestJoinFromRow(t *testing.T) {
	record, err := PersonFilmWorkEntity.FromRow([]any{
		[]byte(linkID), filmID, personID, "actor", "2021-06-16T20:14:09Z",
	})
	require.NoError(t, err)

	link := record.(*PersonFilmWork)
	assert.Equal(t, linkID, link.ID().String())
	assert.Equal(t, filmID, link.FilmWorkID().String())
	assert.Equal(t, personID, link.PersonID().String())
	assert.Equal(t, "actor", link.Role())
	assert.Same(t, PersonFilmWorkEntity, link.Entity())

	record, err = GenreFilmWorkEntity.FromRow([]any{linkID, filmID, genreID, nil})
	require.NoError(t, err)
	assert.Equal(t, []any{linkID, filmID, genreID, nil}, record.Values())
}

func TestFromRowErrors(t *testing.T) {
	tests := []struct {
		name   string
		entity *Entity
		values []any
		column string
	}{
		{
			name:   "arity mismatch",
			entity: GenreEntity,
			values: []any{genreID, "Drama"},
		},
		{
			name:   "invalid uuid",
			entity: GenreEntity,
			values: []any{"not-a-uuid", "Drama", nil, nil, nil},
			column: "id",
		},
		{
			name:   "null id",
			entity: PersonEntity,
			values: []any{nil, "Mark Hamill", nil, nil, nil},
			column: "id",
		},
		{
			name:   "unparsable timestamp",
			entity: PersonEntity,
			values: []any{personID, "Mark Hamill", "yesterday", nil, nil},
			column: "birth_date",
		},
		{
			name:   "unparsable rating",
			entity: FilmWorkEntity,
			values: []any{filmID, "Star Wars", nil, nil, nil, nil, "high", "movie", nil, nil},
			column: "rating",
		},
		{
			name:   "unsupported driver type",
			entity: GenreFilmWorkEntity,
			values: []any{linkID, filmID, genreID, true},
			column: "created_at",
		},
		{
			name:   "join reference uses source column name",
			entity: GenreFilmWorkEntity,
			values: []any{linkID, "bad", genreID, nil},
			column: "film_work_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := tt.entity.FromRow(tt.values)
			require.Error(t, err)
			assert.Nil(t, record)
			assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeRecordConstruction))

			details := etlerrors.DetailsOf(err)
			assert.Equal(t, tt.entity.Table, details["table"])
			if tt.column != "" {
				assert.Equal(t, tt.column, details["column"])
			}
		})
	}
}
