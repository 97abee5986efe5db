package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"crate/internal/export"
	"crate/internal/listsync"
	"crate/internal/services"
)

const namespace = "crate"

// Recorder holds the gauges written after each run.
type Recorder struct {
	registry *prometheus.Registry

	lastRun      prometheus.Gauge
	lastSuccess  prometheus.Gauge
	duration     prometheus.Gauge
	requests     prometheus.Gauge
	records      *prometheus.GaugeVec
	skipped      *prometheus.GaugeVec
	resourceOK   *prometheus.GaugeVec
	listDecision *prometheus.GaugeVec
}

// NewRecorder registers every gauge with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last backup run finished",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when every resource of the last run succeeded",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last backup run",
		}),
		requests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_requests",
			Help:      "Discogs API requests issued by the last run",
		}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_records",
			Help:      "Items fetched per resource in the last run",
		}, []string{"resource"}),
		skipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_skipped_records",
			Help:      "Items that failed normalization per resource in the last run",
		}, []string{"resource"}),
		resourceOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_success",
			Help:      "1 when the resource was exported without error in the last run",
		}, []string{"resource"}),
		listDecision: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "list_decisions",
			Help:      "Lists per sync decision in the last run",
		}, []string{"decision"}),
	}
	r.registry.MustRegister(r.lastRun, r.lastSuccess, r.duration, r.requests,
		r.records, r.skipped, r.resourceOK, r.listDecision)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe sets every gauge from report. requests is the number of API calls
// the run made.
func (r *Recorder) Observe(report *export.Report, requests int64) {
	r.lastRun.Set(float64(report.FinishedAt.Unix()))
	r.duration.Set(report.Duration().Seconds())
	r.requests.Set(float64(requests))
	if report.Err() == nil {
		r.lastSuccess.Set(1)
	} else {
		r.lastSuccess.Set(0)
	}

	for _, result := range report.Resources {
		r.records.WithLabelValues(result.Resource).Set(float64(result.Records))
		r.skipped.WithLabelValues(result.Resource).Set(float64(result.Skipped))
		ok := 1.0
		if result.Failed() {
			ok = 0
		}
		r.resourceOK.WithLabelValues(result.Resource).Set(ok)
		if result.Lists != nil {
			r.observeLists(result.Lists)
		}
	}
}

func (r *Recorder) observeLists(summary *listsync.Summary) {
	for _, decision := range []listsync.Decision{listsync.DecisionNew, listsync.DecisionRefresh, listsync.DecisionSkip} {
		r.listDecision.WithLabelValues(decision.String()).Set(float64(summary.Count(decision)))
	}
	r.listDecision.WithLabelValues("failed").Set(float64(len(summary.Failed)))
	r.listDecision.WithLabelValues("purged").Set(float64(len(summary.Purged)))
	r.listDecision.WithLabelValues("retained").Set(float64(len(summary.Retained)))
}

// WriteTextfile writes the registry to path in the text exposition format.
// The write is atomic so a collector never reads a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create metrics directory: %w", services.ErrPersistence, err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("%w: write metrics textfile: %w", services.ErrPersistence, err)
	}
	return nil
}
