package models

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
)

// timeLayouts are tried in order for text dates and timestamps. SQLite files
// exported from PostgreSQL carry offsets like "+00" with no minutes.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// row coerces the positional values of one source row. The first failure
// is kept in err and later calls become no-ops.
type row struct {
	entity *Entity
	values []any
	err    error
}

func (r *row) fail(i int, want string, cause error) {
	if r.err != nil {
		return
	}
	column := r.entity.SourceColumns[i]
	e := etlerrors.Newf(etlerrors.ErrorTypeRecordConstruction,
		"%s.%s: cannot coerce %T to %s", r.entity.Table, column, r.values[i], want)
	if cause != nil {
		e = etlerrors.Wrap(cause, etlerrors.ErrorTypeRecordConstruction, e.Message)
	}
	r.err = e.WithDetail("table", r.entity.Table).WithDetail("column", column)
}

// text returns the value as a string. NULL is an error.
func (r *row) text(i int) string {
	ns := r.nullText(i)
	if r.err == nil && !ns.Valid {
		r.fail(i, "non-null text", nil)
	}
	return ns.String
}

func (r *row) nullText(i int) sql.NullString {
	if r.err != nil {
		return sql.NullString{}
	}
	switch v := r.values[i].(type) {
	case nil:
		return sql.NullString{}
	case string:
		return sql.NullString{String: v, Valid: true}
	case []byte:
		return sql.NullString{String: string(v), Valid: true}
	case int64:
		return sql.NullString{String: strconv.FormatInt(v, 10), Valid: true}
	case float64:
		return sql.NullString{String: strconv.FormatFloat(v, 'f', -1, 64), Valid: true}
	case time.Time:
		return sql.NullString{String: v.Format("2006-01-02"), Valid: true}
	default:
		r.fail(i, "text", nil)
		return sql.NullString{}
	}
}

func (r *row) uuid(i int) uuid.UUID {
	s := r.text(i)
	if r.err != nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		r.fail(i, "uuid", err)
		return uuid.Nil
	}
	return id
}

func (r *row) nullFloat(i int) sql.NullFloat64 {
	if r.err != nil {
		return sql.NullFloat64{}
	}
	switch v := r.values[i].(type) {
	case nil:
		return sql.NullFloat64{}
	case float64:
		return sql.NullFloat64{Float64: v, Valid: true}
	case int64:
		return sql.NullFloat64{Float64: float64(v), Valid: true}
	case string, []byte:
		s := strings.TrimSpace(asString(v))
		if s == "" {
			return sql.NullFloat64{}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			r.fail(i, "float", err)
			return sql.NullFloat64{}
		}
		return sql.NullFloat64{Float64: f, Valid: true}
	default:
		r.fail(i, "float", nil)
		return sql.NullFloat64{}
	}
}

func (r *row) nullTime(i int) sql.NullTime {
	if r.err != nil {
		return sql.NullTime{}
	}
	switch v := r.values[i].(type) {
	case nil:
		return sql.NullTime{}
	case time.Time:
		return sql.NullTime{Time: v, Valid: true}
	case string, []byte:
		s := strings.TrimSpace(asString(v))
		if s == "" {
			return sql.NullTime{}
		}
		t, err := parseTime(s)
		if err != nil {
			r.fail(i, "timestamp", err)
			return sql.NullTime{}
		}
		return sql.NullTime{Time: t, Valid: true}
	default:
		r.fail(i, "timestamp", nil)
		return sql.NullTime{}
	}
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	s, _ := v.(string)
	return s
}

func parseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func textValue(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

func floatValue(nf sql.NullFloat64) any {
	if !nf.Valid {
		return nil
	}
	return nf.Float64
}

func timeValue(nt sql.NullTime) any {
	if !nt.Valid {
		return nil
	}
	return nt.Time
}
