package pipeline

import (
	"time"

	"github.com/goccy/go-json"
)

// TableReport summarizes the migration of one table.
type TableReport struct {
	Table         string        `json:"table"`
	SourceCount   int64         `json:"source_count"`
	RowsRead      int64         `json:"rows_read"`
	RowsInserted  int64         `json:"rows_inserted"`
	RowsSkipped   int64         `json:"rows_skipped"`
	FailedBatches int           `json:"failed_batches"`
	FailedRows    int64         `json:"failed_rows"`
	Duration      time.Duration `json:"-"`
}

// Report summarizes a migration run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
	Tables    []TableReport `json:"tables"`
}

// Totals sums every table of the report.
func (r *Report) Totals() TableReport {
	total := TableReport{Table: "total", Duration: r.Duration}
	for _, t := range r.Tables {
		total.SourceCount += t.SourceCount
		total.RowsRead += t.RowsRead
		total.RowsInserted += t.RowsInserted
		total.RowsSkipped += t.RowsSkipped
		total.FailedBatches += t.FailedBatches
		total.FailedRows += t.FailedRows
	}
	return total
}

// Table returns the report of one table.
func (r *Report) Table(name string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

type tableJSON struct {
	TableReport
	DurationSeconds float64 `json:"duration_seconds"`
}

type reportJSON struct {
	StartedAt       time.Time   `json:"started_at"`
	DurationSeconds float64     `json:"duration_seconds"`
	Tables          []tableJSON `json:"tables"`
	Totals          tableJSON   `json:"totals"`
}

// MarshalJSON renders durations in seconds and appends the totals.
func (r *Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		StartedAt:       r.StartedAt,
		DurationSeconds: r.Duration.Seconds(),
		Tables:          make([]tableJSON, len(r.Tables)),
	}
	for i, t := range r.Tables {
		out.Tables[i] = tableJSON{TableReport: t, DurationSeconds: t.Duration.Seconds()}
	}
	totals := r.Totals()
	out.Totals = tableJSON{TableReport: totals, DurationSeconds: totals.Duration.Seconds()}
	return json.Marshal(out)
}
