// Package metrics provides Prometheus metrics for the kick prediction pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics for dataset generation and
// prediction. A nil *Metrics is valid and records nothing.
type Metrics struct {
	PredictionTotal    *prometheus.CounterVec
	PredictionDuration *prometheus.HistogramVec
	KicksDropped       *prometheus.CounterVec
	KicksBuilt         prometheus.Counter
	LandmarksSkipped   *prometheus.CounterVec
	PoseDetections     *prometheus.CounterVec
}

// New creates the metrics and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.PredictionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "penaltykick_predictions_total",
			Help: "Total number of kick direction predictions by outcome.",
		},
		[]string{"status"},
	)
	m.PredictionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "penaltykick_prediction_duration_seconds",
			Help:    "Time taken to build features and run the classifier for one kick.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"schema"},
	)
	m.KicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "penaltykick_kicks_dropped_total",
			Help: "Kicks left out of a training dataset, by reason.",
		},
		[]string{"reason"},
	)
	m.KicksBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "penaltykick_kicks_built_total",
			Help: "Kicks written to a training dataset.",
		},
	)
	m.LandmarksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "penaltykick_landmarks_skipped_total",
			Help: "Raw landmark rows that could not be mapped to a tracked joint, by kind.",
		},
		[]string{"kind"},
	)
	m.PoseDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "penaltykick_pose_detections_total",
			Help: "Frames run through the pose detector, by outcome.",
		},
		[]string{"status"},
	)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.PredictionTotal.Describe(ch)
	m.PredictionDuration.Describe(ch)
	m.KicksDropped.Describe(ch)
	m.KicksBuilt.Describe(ch)
	m.LandmarksSkipped.Describe(ch)
	m.PoseDetections.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.PredictionTotal.Collect(ch)
	m.PredictionDuration.Collect(ch)
	m.KicksDropped.Collect(ch)
	m.KicksBuilt.Collect(ch)
	m.LandmarksSkipped.Collect(ch)
	m.PoseDetections.Collect(ch)
}

// RecordPrediction records one prediction attempt.
func (m *Metrics) RecordPrediction(schema, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PredictionTotal.WithLabelValues(status).Inc()
	m.PredictionDuration.WithLabelValues(schema).Observe(d.Seconds())
}

// RecordDroppedKick records a kick excluded from a dataset.
func (m *Metrics) RecordDroppedKick(reason string) {
	if m == nil {
		return
	}
	m.KicksDropped.WithLabelValues(reason).Inc()
}

// RecordBuiltKicks records kicks included in a dataset.
func (m *Metrics) RecordBuiltKicks(n int) {
	if m == nil {
		return
	}
	m.KicksBuilt.Add(float64(n))
}

// RecordSkippedLandmarks records unmapped landmark rows.
func (m *Metrics) RecordSkippedLandmarks(untracked, unknown int) {
	if m == nil {
		return
	}
	if untracked > 0 {
		m.LandmarksSkipped.WithLabelValues("untracked").Add(float64(untracked))
	}
	if unknown > 0 {
		m.LandmarksSkipped.WithLabelValues("unknown").Add(float64(unknown))
	}
}

// RecordPoseDetection records one detector call.
func (m *Metrics) RecordPoseDetection(status string) {
	if m == nil {
		return
	}
	m.PoseDetections.WithLabelValues(status).Inc()
}
