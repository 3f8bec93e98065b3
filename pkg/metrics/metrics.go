package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_events_consumed_total",
		Help: "Total number of transaction events fetched from the ingest stream.",
	})

	EventsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_events_malformed_total",
		Help: "Total number of stream records dropped because they could not be decoded.",
	})

	AnomaliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_anomalies_detected_total",
		Help: "Total number of events that exceeded the anomaly threshold.",
	})

	RecordsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_records_stored_total",
		Help: "Total number of anomaly records written to the record store.",
	})

	NotificationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_notifications_published_total",
		Help: "Total number of anomaly notifications published.",
	})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalyd_handler_failures_total",
		Help: "Total number of failed handler invocations, labelled by stage.",
	}, []string{"stage"})

	EventsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_events_dead_lettered_total",
		Help: "Total number of events moved to the dead letter topic.",
	})

	HandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "anomalyd_handle_duration_seconds",
		Help:    "Time spent handling a single anomaly, including store and publish.",
		Buckets: prometheus.DefBuckets,
	})

	EventsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_events_archived_total",
		Help: "Total number of transaction events written to the archive.",
	})

	ArchiveFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anomalyd_archive_flushes_total",
		Help: "Total number of archive batches flushed.",
	})
)
