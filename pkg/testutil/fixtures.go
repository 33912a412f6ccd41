package testutil

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cinemigrate/pkg/models"
)

// SourceSchema is the DDL of a source database. Join tables name the film
// reference film_work_id.
const SourceSchema = `
CREATE TABLE film_work (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    creation_date DATE,
    certificate TEXT,
    file_path TEXT,
    rating FLOAT,
    type TEXT NOT NULL,
    created_at timestamp with time zone,
    updated_at timestamp with time zone
);
CREATE TABLE genre (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    created_at timestamp with time zone,
    updated_at timestamp with time zone
);
CREATE TABLE genre_film_work (
    id TEXT PRIMARY KEY,
    film_work_id TEXT NOT NULL,
    genre_id TEXT NOT NULL,
    created_at timestamp with time zone
);
CREATE TABLE person (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    birth_date DATE,
    created_at timestamp with time zone,
    updated_at timestamp with time zone
);
CREATE TABLE person_film_work (
    id TEXT PRIMARY KEY,
    film_work_id TEXT NOT NULL,
    person_id TEXT NOT NULL,
    role TEXT NOT NULL,
    created_at timestamp with time zone
);
`

// TargetSchema is the DDL of a SQLite target database.
const TargetSchema = `
CREATE TABLE film_work (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    creation_date DATE,
    certificate TEXT,
    file_path TEXT,
    rating FLOAT,
    type TEXT NOT NULL,
    created_at TIMESTAMP,
    updated_at TIMESTAMP
);
CREATE TABLE genre (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMP,
    updated_at TIMESTAMP
);
CREATE TABLE genre_film_work (
    id TEXT PRIMARY KEY,
    filmwork_id TEXT NOT NULL REFERENCES film_work (id),
    genre_id TEXT NOT NULL REFERENCES genre (id),
    created_at TIMESTAMP
);
CREATE TABLE person (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    birth_date DATE,
    created_at TIMESTAMP,
    updated_at TIMESTAMP
);
CREATE TABLE person_film_work (
    id TEXT PRIMARY KEY,
    filmwork_id TEXT NOT NULL REFERENCES film_work (id),
    person_id TEXT NOT NULL REFERENCES person (id),
    role TEXT NOT NULL,
    created_at TIMESTAMP
);
`

// Timestamp is the created_at and updated_at value of every fixture row,
// in the format PostgreSQL exports to SQLite.
const Timestamp = "2021-06-16 20:14:09.221838+00"

var fixtureNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// Dataset sizes a source fixture. Every film links to one genre and one
// person when genres and persons exist.
type Dataset struct {
	FilmWorks int
	Genres    int
	Persons   int
}

// RowID returns the deterministic id of row i of table.
func RowID(table string, i int) uuid.UUID {
	return uuid.NewSHA1(fixtureNamespace, []byte(fmt.Sprintf("%s-%d", table, i)))
}

// OpenSQLite opens a read-write handle on path, closed with the test.
func OpenSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateSourceDB writes a source database with ds rows under t.TempDir and
// returns its path.
func CreateSourceDB(t *testing.T, ds Dataset) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.sqlite")
	db := OpenSQLite(t, path)
	exec(t, db, SourceSchema)

	tx, err := db.Begin()
	require.NoError(t, err)

	for i := 0; i < ds.FilmWorks; i++ {
		_, err := tx.Exec(`INSERT INTO film_work VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, filmWorkRow(i)...)
		require.NoError(t, err)
	}
	for i := 0; i < ds.Genres; i++ {
		_, err := tx.Exec(`INSERT INTO genre VALUES (?, ?, ?, ?, ?)`,
			RowID("genre", i).String(), fmt.Sprintf("Genre %d", i), nullUnless(i%2 == 0, "Genre description"), Timestamp, Timestamp)
		require.NoError(t, err)
	}
	for i := 0; i < ds.Persons; i++ {
		_, err := tx.Exec(`INSERT INTO person VALUES (?, ?, ?, ?, ?)`,
			RowID("person", i).String(), fmt.Sprintf("Person %d", i), nullUnless(i%2 == 1, "1951-09-25"), Timestamp, Timestamp)
		require.NoError(t, err)
	}
	for i := 0; i < ds.FilmWorks; i++ {
		if ds.Genres > 0 {
			_, err := tx.Exec(`INSERT INTO genre_film_work VALUES (?, ?, ?, ?)`,
				RowID("genre_film_work", i).String(), RowID("film_work", i).String(), RowID("genre", i%ds.Genres).String(), Timestamp)
			require.NoError(t, err)
		}
		if ds.Persons > 0 {
			_, err := tx.Exec(`INSERT INTO person_film_work VALUES (?, ?, ?, ?, ?)`,
				RowID("person_film_work", i).String(), RowID("film_work", i).String(), RowID("person", i%ds.Persons).String(),
				[]string{"actor", "writer", "director"}[i%3], Timestamp)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tx.Commit())

	return path
}

// CreateTargetDB writes an empty SQLite target database under t.TempDir
// and returns its path.
func CreateTargetDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "target.sqlite")
	exec(t, OpenSQLite(t, path), TargetSchema)
	return path
}

// DropTable removes table from the database at path.
func DropTable(t *testing.T, path, table string) {
	t.Helper()
	exec(t, OpenSQLite(t, path), "DROP TABLE "+table)
}

// ReadTable returns every row of the entity's target table in id order,
// materialized as records.
func ReadTable(t *testing.T, db *sql.DB, entity *models.Entity) []models.Recordable {
	t.Helper()

	rows, err := db.Query("SELECT " + entity.ColumnList() + " FROM " + entity.Table + " ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var records []models.Recordable
	for rows.Next() {
		values := make([]any, len(entity.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		require.NoError(t, rows.Scan(dest...))

		record, err := entity.FromRow(values)
		require.NoError(t, err)
		records = append(records, record)
	}
	require.NoError(t, rows.Err())
	return records
}

func filmWorkRow(i int) []any {
	kind := "movie"
	if i%2 == 1 {
		kind = "tv_show"
	}
	var rating any
	if i%7 != 0 {
		rating = float64(i%100) / 10
	}
	return []any{
		RowID("film_work", i).String(),
		fmt.Sprintf("Film %d", i),
		nullUnless(i%2 == 0, fmt.Sprintf("Description of film %d", i)),
		nullUnless(i%3 == 0, "1977-05-25"),
		nullUnless(i%5 == 0, "PG-13"),
		nil,
		rating,
		kind,
		Timestamp,
		Timestamp,
	}
}

func nullUnless(ok bool, v string) any {
	if !ok {
		return nil
	}
	return v
}

func exec(t *testing.T, db *sql.DB, script string) {
	t.Helper()
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}
