package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_ingest_lines_total",
		Help: "Raw lines read from watched files.",
	})
	entriesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_ingest_entries_stored_total",
		Help: "Parsed entries accepted into the store.",
	})
	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_ingest_duplicates_total",
		Help: "Lines skipped because their signature was already seen.",
	})
	readErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loglens_ingest_read_errors_total",
		Help: "Per-file read failures; the file is retried next cycle.",
	})
	filesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loglens_ingest_files_tracked",
		Help: "Files currently tracked by the ingestion watcher.",
	})
)
