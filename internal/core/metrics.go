package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	files      *prometheus.CounterVec
	rows       prometheus.Counter
	duplicates prometheus.Counter
	filled     prometheus.Counter
	exports    *prometheus.CounterVec
	stage      *prometheus.HistogramVec
	active     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataelevate",
			Name:      "files_processed_total",
			Help:      "Files run through the pipeline by extension and outcome.",
		}, []string{"ext", "outcome"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataelevate",
			Name:      "rows_loaded_total",
			Help:      "Rows loaded from uploaded files.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataelevate",
			Name:      "duplicate_rows_removed_total",
			Help:      "Rows dropped by duplicate removal.",
		}),
		filled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dataelevate",
			Name:      "cells_filled_total",
			Help:      "Missing numeric cells replaced by a column mean.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataelevate",
			Name:      "exports_total",
			Help:      "Exports produced by format.",
		}, []string{"format"}),
		stage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dataelevate",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dataelevate",
			Name:      "active_runs",
			Help:      "Batches currently being processed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.files, m.rows, m.duplicates, m.filled, m.exports, m.stage, m.active)
	}
	return m
}

func (m *Metrics) fileDone(ext, outcome string) {
	if m == nil {
		return
	}
	if ext == "" {
		ext = "none"
	}
	m.files.WithLabelValues(ext, outcome).Inc()
}

func (m *Metrics) rowsLoaded(n int) {
	if m != nil {
		m.rows.Add(float64(n))
	}
}

func (m *Metrics) duplicatesRemoved(n int) {
	if m != nil {
		m.duplicates.Add(float64(n))
	}
}

func (m *Metrics) cellsFilled(n int) {
	if m != nil {
		m.filled.Add(float64(n))
	}
}

func (m *Metrics) exported(format ExportFormat) {
	if m != nil {
		m.exports.WithLabelValues(string(format)).Inc()
	}
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m != nil {
		m.stage.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// RunStarted and RunFinished track batches in flight.
func (m *Metrics) RunStarted() {
	if m != nil {
		m.active.Inc()
	}
}

func (m *Metrics) RunFinished() {
	if m != nil {
		m.active.Dec()
	}
}
