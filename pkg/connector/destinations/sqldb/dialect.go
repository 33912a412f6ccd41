package sqldb

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
	_ "github.com/mattn/go-sqlite3"    // registers the sqlite3 driver

	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/models"
)

// Dialect captures what differs between target stores: driver, DSN,
// identifier quoting, bind parameters and the skip-on-duplicate clause.
type Dialect interface {
	// Name is the configuration name of the dialect
	Name() string
	// DriverName is the database/sql driver to open
	DriverName() string
	// DSN builds the data source name from the target settings
	DSN(cfg config.TargetConfig) string
	// Placeholders is the bind parameter style
	Placeholders() models.PlaceholderStyle
	// Table renders the qualified, quoted table name
	Table(schema, table string) string
	// OnConflict is appended to every INSERT to skip rows whose id exists
	OnConflict() string
	// ConflictOnAnyKey reports whether OnConflict also skips rows that
	// collide on a unique key other than id
	ConflictOnAnyKey() bool
	// MaxParams is the bind parameter limit of one statement
	MaxParams() int
}

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, bool) {
	switch name {
	case config.DialectPostgreSQL:
		return PostgreSQL{}, true
	case config.DialectMySQL:
		return MySQL{}, true
	case config.DialectSQLite:
		return SQLite{}, true
	default:
		return nil, false
	}
}

// PostgreSQL writes through pgx.
type PostgreSQL struct{}

func (PostgreSQL) Name() string       { return config.DialectPostgreSQL }
func (PostgreSQL) DriverName() string { return "pgx" }

func (PostgreSQL) DSN(cfg config.TargetConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func (PostgreSQL) Placeholders() models.PlaceholderStyle { return models.Dollar }

func (PostgreSQL) Table(schema, table string) string {
	return qualify(schema, table, `"`)
}

func (PostgreSQL) OnConflict() string     { return "ON CONFLICT (id) DO NOTHING" }
func (PostgreSQL) ConflictOnAnyKey() bool { return false }
func (PostgreSQL) MaxParams() int         { return 65535 }

// MySQL writes through go-sql-driver/mysql. The schema is the database
// holding the tables.
type MySQL struct{}

func (MySQL) Name() string       { return config.DialectMySQL }
func (MySQL) DriverName() string { return "mysql" }

func (MySQL) DSN(cfg config.TargetConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

func (MySQL) Placeholders() models.PlaceholderStyle { return models.Question }

func (MySQL) Table(schema, table string) string {
	return qualify(schema, table, "`")
}

func (MySQL) OnConflict() string     { return "ON DUPLICATE KEY UPDATE id = id" }
func (MySQL) ConflictOnAnyKey() bool { return true }
func (MySQL) MaxParams() int         { return 65535 }

// SQLite writes to a database file named by the target database setting.
// SQLite has no schemas, so the schema setting is ignored.
type SQLite struct{}

func (SQLite) Name() string                          { return config.DialectSQLite }
func (SQLite) DriverName() string                    { return "sqlite3" }
func (SQLite) DSN(cfg config.TargetConfig) string    { return cfg.Database }
func (SQLite) Placeholders() models.PlaceholderStyle { return models.Question }
func (SQLite) Table(_, table string) string          { return qualify("", table, `"`) }
func (SQLite) OnConflict() string                    { return "ON CONFLICT (id) DO NOTHING" }
func (SQLite) ConflictOnAnyKey() bool                { return false }
func (SQLite) MaxParams() int                        { return 32766 }

func qualify(schema, table, quote string) string {
	q := func(name string) string {
		return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
	}
	if schema == "" {
		return q(table)
	}
	return q(schema) + "." + q(table)
}
