package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	closetSync = "closet_sync"

	// Upload metrics
	uploadAttemptsTotal    = "upload_attempts_total"
	uploadStaleIgnored     = "upload_stale_ignored_total"
	uploadFailedMaxRetries = "upload_failed_max_retries_total"

	// Queue metrics
	QueueDepth = "queue_depth"

	// Sweep metrics
	orphanFilesDeleted = "orphan_files_deleted_total"

	// Labels
	kindLabel    = "kind"
	outcomeLabel = "outcome"

	// Outcomes
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var uploadAttemptLabels = []string{
	kindLabel,
	outcomeLabel,
}

var kindOnlyLabels = []string{
	kindLabel,
}

/**
* Metrics definition
**/
var uploadAttemptsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: closetSync,
		Name:      uploadAttemptsTotal,
		Help:      "number of upload attempts by kind and outcome",
	},
	uploadAttemptLabels,
)

var uploadStaleIgnoredMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: closetSync,
		Name:      uploadStaleIgnored,
		Help:      "number of uploads whose guarded record update matched no rows and was ignored",
	},
	kindOnlyLabels,
)

var uploadFailedMaxRetriesMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: closetSync,
		Name:      uploadFailedMaxRetries,
		Help:      "number of jobs that exhausted their retry budget",
	},
	kindOnlyLabels,
)

var queueDepthMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: closetSync,
		Name:      QueueDepth,
		Help:      "number of jobs currently held by the upload queue",
	},
	kindOnlyLabels,
)

var orphanFilesDeletedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: closetSync,
		Name:      orphanFilesDeleted,
		Help:      "number of unreferenced local files removed by the sweep",
	},
	kindOnlyLabels,
)

func IncreaseUploadAttempt(kind string, outcome string) {
	labels := prometheus.Labels{
		kindLabel:    kind,
		outcomeLabel: outcome,
	}
	uploadAttemptsTotalMetric.With(labels).Inc()
}

func IncreaseUploadStaleIgnored(kind string) {
	uploadStaleIgnoredMetric.With(prometheus.Labels{kindLabel: kind}).Inc()
}

func IncreaseUploadFailedMaxRetries(kind string) {
	uploadFailedMaxRetriesMetric.With(prometheus.Labels{kindLabel: kind}).Inc()
}

func UpdateQueueDepthMetric(kind string, count int) {
	queueDepthMetric.With(prometheus.Labels{kindLabel: kind}).Set(float64(count))
}

func IncreaseOrphanFilesDeleted(kind string, count int) {
	orphanFilesDeletedMetric.With(prometheus.Labels{kindLabel: kind}).Add(float64(count))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(uploadAttemptsTotalMetric)
	prometheus.MustRegister(uploadStaleIgnoredMetric)
	prometheus.MustRegister(uploadFailedMaxRetriesMetric)
	prometheus.MustRegister(queueDepthMetric)
	prometheus.MustRegister(orphanFilesDeletedMetric)
}
