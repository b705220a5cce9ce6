package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocommon_frames_processed_total",
		Help: "Total number of frames pulled through a stage, by outcome",
	}, []string{"stage", "outcome"})

	ProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videocommon_stage_process_duration_seconds",
		Help:    "Duration of a single Stage.Process invocation",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"stage"})

	ActiveWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "videocommon_stage_active_workers",
		Help: "Number of live workers in a stage's pool",
	}, []string{"stage"})

	KeyFramesPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videocommon_key_frames_published_total",
		Help: "Total number of admitted frames published downstream",
	})

	TrainingFramesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videocommon_training_frames_stored_total",
		Help: "Total number of frames persisted in training mode",
	})

	IngestFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videocommon_ingest_frames_total",
		Help: "Total number of inbound frame messages, by outcome",
	}, []string{"outcome"})
)

// Outcome labels for FramesProcessedTotal.
const (
	OutcomeAdmitted = "admitted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
