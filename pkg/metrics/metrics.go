// Package metrics provides Prometheus collectors for the migration.
//
// # Basic Usage
//
//	collector := metrics.NewCollector(prometheus.NewRegistry())
//	collector.RowsRead("film_work", len(batch))
//	collector.ObserveBatch("film_work", metrics.StageWrite, time.Since(start))
//
// A Collector registers its vectors on the Registerer it is given, so
// tests use a fresh registry per collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch stages used as the stage label.
const (
	StageRead  = "read"
	StageWrite = "write"
)

// Collector records per-table counters and batch latency.
type Collector struct {
	rowsRead      *prometheus.CounterVec   // rows materialized from the source
	rowsWritten   *prometheus.CounterVec   // rows the target accepted
	rowsSkipped   *prometheus.CounterVec   // rows skipped on duplicate id
	batchesFailed *prometheus.CounterVec   // failed batches by stage
	batchDuration *prometheus.HistogramVec // batch latency by stage
}

// NewCollector creates the collectors and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		rowsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemigrate_rows_read_total",
				Help: "Total number of rows read from the source",
			},
			[]string{"table"},
		),
		rowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemigrate_rows_written_total",
				Help: "Total number of rows inserted into the target",
			},
			[]string{"table"},
		),
		rowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemigrate_rows_skipped_total",
				Help: "Total number of rows skipped because the id already existed",
			},
			[]string{"table"},
		),
		batchesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemigrate_batches_failed_total",
				Help: "Total number of failed batches",
			},
			[]string{"table", "stage"},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cinemigrate_batch_duration_seconds",
				Help:    "Batch read and write latency",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"table", "stage"},
		),
	}
}

// RowsRead adds n rows read from table.
func (c *Collector) RowsRead(table string, n int) {
	if c == nil {
		return
	}
	c.rowsRead.WithLabelValues(table).Add(float64(n))
}

// RowsWritten adds n rows inserted into table and the rows the target skipped.
func (c *Collector) RowsWritten(table string, inserted, skipped int64) {
	if c == nil {
		return
	}
	c.rowsWritten.WithLabelValues(table).Add(float64(inserted))
	if skipped > 0 {
		c.rowsSkipped.WithLabelValues(table).Add(float64(skipped))
	}
}

// BatchFailed counts one failed batch.
func (c *Collector) BatchFailed(table, stage string) {
	if c == nil {
		return
	}
	c.batchesFailed.WithLabelValues(table, stage).Inc()
}

// ObserveBatch records the latency of one batch stage.
func (c *Collector) ObserveBatch(table, stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.batchDuration.WithLabelValues(table, stage).Observe(d.Seconds())
}
