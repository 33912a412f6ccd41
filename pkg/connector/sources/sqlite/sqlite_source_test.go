package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cinemigrate/pkg/connector/base"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
	"github.com/ajitpratap0/cinemigrate/pkg/testutil"
)

func openSource(t *testing.T, path string) *Source {
	t.Helper()

	src, err := NewSource(testutil.TestContext(t), path, base.NoRetryPolicy(), testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestNewSourceMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sqlite")

	_, err := NewSource(testutil.TestContext(t), path, base.NoRetryPolicy(), nil)
	require.Error(t, err)
	assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeConnection))
	assert.NoFileExists(t, path)
}

func TestNewSourcePathWithURICharacters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies#1?v=2%41.sqlite")
	require.NoError(t, os.Rename(testutil.CreateSourceDB(t, testutil.Dataset{FilmWorks: 4}), path))

	src := openSource(t, path)
	n, err := src.Count(testutil.TestContext(t), models.FilmWorkEntity)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"movies#1?v=2%41.sqlite"}, names, "no file is created next to the source")
}

func TestCount(t *testing.T) {
	path := testutil.CreateSourceDB(t, testutil.Dataset{FilmWorks: 12, Genres: 3, Persons: 4})
	src := openSource(t, path)
	ctx := testutil.TestContext(t)

	expected := map[*models.Entity]int64{
		models.FilmWorkEntity:       12,
		models.GenreEntity:          3,
		models.GenreFilmWorkEntity:  12,
		models.PersonEntity:         4,
		models.PersonFilmWorkEntity: 12,
	}
	for entity, want := range expected {
		n, err := src.Count(ctx, entity)
		require.NoError(t, err)
		assert.Equal(t, want, n, entity.Table)
	}
}

func TestCursorReadsInBatches(t *testing.T) {
	path := testutil.CreateSourceDB(t, testutil.Dataset{FilmWorks: 25})
	src := openSource(t, path)
	ctx := testutil.TestContext(t)

	cur := src.Open(models.FilmWorkEntity, 10)

	var sizes []int
	var ids []string
	for {
		batch, err := cur.Next(ctx)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		sizes = append(sizes, len(batch))
		for _, r := range batch {
			ids = append(ids, r.ID().String())
		}
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, int64(25), cur.Offset())
	require.Len(t, ids, 25)
	for i, id := range ids {
		assert.Equal(t, testutil.RowID("film_work", i).String(), id, "rows come back in insertion order")
	}
}

func TestCursorMaterializesFields(t *testing.T) {
	path := testutil.CreateSourceDB(t, testutil.Dataset{FilmWorks: 3, Genres: 1, Persons: 1})
	src := openSource(t, path)
	ctx := testutil.TestContext(t)

	batch, err := src.Open(models.FilmWorkEntity, 100).Next(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	first := batch[0].(*models.FilmWork)
	assert.Equal(t, "Film 0", first.Title())
	assert.Equal(t, models.FilmWorkTypeMovie, first.Type())
	_, rated := first.Rating()
	assert.False(t, rated, "rating of film 0 is NULL")

	values := first.Values()
	assert.Equal(t, "Description of film 0", values[2])
	created, ok := values[8].(time.Time)
	require.True(t, ok)
	assert.True(t, created.Equal(time.Date(2021, 6, 16, 20, 14, 9, 221838000, time.UTC)))

	second := batch[1].(*models.FilmWork)
	assert.Equal(t, models.FilmWorkTypeTVShow, second.Type())
	rating, rated := second.Rating()
	assert.True(t, rated)
	assert.Equal(t, 0.1, rating)
	assert.Nil(t, second.Values()[2])

	links, err := src.Open(models.PersonFilmWorkEntity, 100).Next(ctx)
	require.NoError(t, err)
	require.Len(t, links, 3)
	link := links[2].(*models.PersonFilmWork)
	assert.Equal(t, testutil.RowID("film_work", 2), link.FilmWorkID())
	assert.Equal(t, testutil.RowID("person", 0), link.PersonID())
	assert.Equal(t, "director", link.Role())
}

func TestCursorAcceptsTargetColumnNames(t *testing.T) {
	path := testutil.CreateTargetDB(t)
	db := testutil.OpenSQLite(t, path)
	_, err := db.Exec(`INSERT INTO genre_film_work (id, filmwork_id, genre_id, created_at) VALUES (?, ?, ?, NULL)`,
		testutil.RowID("genre_film_work", 0).String(), testutil.RowID("film_work", 0).String(), testutil.RowID("genre", 0).String())
	require.NoError(t, err)

	src := openSource(t, path)
	batch, err := src.Open(models.GenreFilmWorkEntity, 10).Next(testutil.TestContext(t))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, testutil.RowID("film_work", 0), batch[0].(*models.GenreFilmWork).FilmWorkID())
}

func TestReadErrors(t *testing.T) {
	path := testutil.CreateSourceDB(t, testutil.Dataset{FilmWorks: 2, Genres: 1})
	db := testutil.OpenSQLite(t, path)
	_, err := db.Exec(`CREATE TABLE broken_person (id TEXT, full_name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO genre VALUES ('not-a-uuid', 'Bad', NULL, NULL, NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`ALTER TABLE film_work ADD COLUMN slug TEXT DEFAULT 'film-slug'`)
	require.NoError(t, err)
	testutil.DropTable(t, path, "person")

	src := openSource(t, path)
	ctx := testutil.TestContext(t)

	t.Run("missing table count", func(t *testing.T) {
		_, err := src.Count(ctx, models.PersonEntity)
		require.Error(t, err)
		assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeSourceRead))
		assert.Equal(t, "person", etlerrors.DetailsOf(err)["table"])
	})

	t.Run("missing table read", func(t *testing.T) {
		_, err := src.Open(models.PersonEntity, 10).Next(ctx)
		require.Error(t, err)
		assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeSourceRead))
	})

	t.Run("missing column", func(t *testing.T) {
		broken := *models.PersonEntity
		broken.Table = "broken_person"
		_, err := src.Open(&broken, 10).Next(ctx)
		require.Error(t, err)
		assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeSourceRead))
		assert.Contains(t, err.Error(), "missing column birth_date")
	})

	t.Run("extra column", func(t *testing.T) {
		cur := src.Open(models.FilmWorkEntity, 10)
		batch, err := cur.Next(ctx)
		require.Error(t, err)
		assert.Empty(t, batch)
		assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeRecordConstruction))
		assert.Contains(t, err.Error(), "expected 10 columns, got 11")
		assert.Equal(t, int64(0), cur.Offset())
	})

	t.Run("unconvertible row", func(t *testing.T) {
		cur := src.Open(models.GenreEntity, 10)
		_, err := cur.Next(ctx)
		require.Error(t, err)
		assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeRecordConstruction))
		assert.Equal(t, int64(0), cur.Offset(), "a failed batch does not advance the cursor")
	})
}
