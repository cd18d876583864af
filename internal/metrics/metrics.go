// Package metrics exposes Prometheus collectors for reconciliation runs
// and the matching API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record outcomes
const (
	OutcomeMatched      = "matched"
	OutcomeDirect       = "direct"
	OutcomeUnmatched    = "unmatched"
	OutcomeNoBucket     = "no_bucket"
	OutcomeJurisdiction = "skipped_jurisdiction"
	CheckpointSucceeded = "ok"
	CheckpointFailed    = "failed"
)

// Metrics groups the collectors. Each instance owns its registry so tests
// and concurrent runs never collide on registration.
type Metrics struct {
	Registry    *prometheus.Registry
	Records     *prometheus.CounterVec
	Checkpoints *prometheus.CounterVec
	BucketSize  prometheus.Histogram
	MatchScore  prometheus.Histogram
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reconciler",
			Name:      "records_total",
			Help:      "CRM records processed, by outcome.",
		}, []string{"outcome"}),
		Checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reconciler",
			Name:      "checkpoints_total",
			Help:      "Checkpoint writes, by result.",
		}, []string{"result"}),
		BucketSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reconciler",
			Name:      "bucket_size",
			Help:      "Number of registry candidates scanned per query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		MatchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reconciler",
			Name:      "best_score",
			Help:      "Best candidate score per query.",
			Buckets:   prometheus.LinearBuckets(0, 10, 16),
		}),
	}

	m.Registry.MustRegister(
		m.Records,
		m.Checkpoints,
		m.BucketSize,
		m.MatchScore,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordOutcome counts one processed record
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(outcome).Inc()
}

// ObserveScan records the size of a scanned bucket and its best score
func (m *Metrics) ObserveScan(bucketSize int, bestScore float64) {
	if m == nil {
		return
	}
	m.BucketSize.Observe(float64(bucketSize))
	m.MatchScore.Observe(bestScore)
}

// CheckpointResult counts one checkpoint attempt
func (m *Metrics) CheckpointResult(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Checkpoints.WithLabelValues(CheckpointSucceeded).Inc()
	} else {
		m.Checkpoints.WithLabelValues(CheckpointFailed).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
