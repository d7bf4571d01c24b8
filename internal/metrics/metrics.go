// Package metrics exposes Prometheus instruments for scorecard computation and exports.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/straye-as/scorecard-api/internal/domain"
)

const namespace = "scorecard"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// ScorecardMetrics holds the instruments recorded by the scorecard service and export job
type ScorecardMetrics struct {
	registry *prometheus.Registry

	ComputeDuration   *prometheus.HistogramVec
	ScorecardsTotal   *prometheus.CounterVec
	FetchFailures     *prometheus.CounterVec
	ExportRuns        *prometheus.CounterVec
	ExportedSnapshots prometheus.Counter
	LastExport        prometheus.Gauge
}

// New registers every instrument on a fresh registry together with the Go and process collectors
func New() *ScorecardMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &ScorecardMetrics{
		registry: reg,

		ComputeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compute_duration_seconds",
				Help:      "Time spent computing one scorecard, including record fetches",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
			},
			[]string{"range", "outcome"},
		),

		ScorecardsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "computed_total",
				Help:      "Scorecards computed, by resolved role",
			},
			[]string{"role"},
		),

		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Record source failures that aborted a scorecard, by pipeline phase",
			},
			[]string{"phase"},
		),

		ExportRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_runs_total",
				Help:      "Scorecard export runs",
			},
			[]string{"outcome"},
		),

		ExportedSnapshots: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exported_snapshots_total",
				Help:      "Scorecard snapshots persisted by export runs",
			},
		),

		LastExport: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_export_timestamp_seconds",
				Help:      "Unix time of the last successful export run",
			},
		),
	}
}

// ObserveCompute records one scorecard computation. err is inspected for a
// *domain.FetchError to attribute the failure to a phase.
func (m *ScorecardMetrics) ObserveCompute(rangeToken string, role domain.RoleKey, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			m.FetchFailures.WithLabelValues(string(fe.Phase)).Inc()
		}
	} else {
		m.ScorecardsTotal.WithLabelValues(string(role)).Inc()
	}
	m.ComputeDuration.WithLabelValues(rangeToken, outcome).Observe(d.Seconds())
}

// ObserveExport records the outcome of one export run
func (m *ScorecardMetrics) ObserveExport(exported int, at time.Time, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ExportRuns.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.ExportRuns.WithLabelValues(OutcomeSuccess).Inc()
	m.ExportedSnapshots.Add(float64(exported))
	m.LastExport.Set(float64(at.Unix()))
}

// Registry returns the registry the instruments live on
func (m *ScorecardMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *ScorecardMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
