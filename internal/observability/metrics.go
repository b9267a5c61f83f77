package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks aggregation runs. All methods are safe on a nil receiver
// so components can be built without metrics.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	tasksTotal      *prometheus.CounterVec
	candidatesTotal prometheus.Counter
	rejectedTotal   *prometheus.CounterVec
	rewritesTotal   *prometheus.CounterVec
	publishedTotal  prometheus.Counter
	storeSize       prometheus.Gauge
	lastRunTime     prometheus.Gauge

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance with its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skatefeed_runs_total",
			Help: "Aggregation runs by result",
		}, []string{"result"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "skatefeed_run_duration_seconds",
			Help:    "Wall-clock duration of aggregation runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		tasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skatefeed_source_tasks_total",
			Help: "Source, channel and hashtag tasks by kind and outcome",
		}, []string{"kind", "outcome"}),
		candidatesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "skatefeed_candidates_total",
			Help: "Candidate articles produced by aggregation",
		}),
		rejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skatefeed_candidates_rejected_total",
			Help: "Candidates rejected by a publish gate",
		}, []string{"reason"}),
		rewritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "skatefeed_rewrites_total",
			Help: "Rewrites by mode (service or fallback)",
		}, []string{"mode"}),
		publishedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "skatefeed_posts_published_total",
			Help: "Posts added to the post store",
		}),
		storeSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "skatefeed_store_posts",
			Help: "Posts in the store after the last run",
		}),
		lastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "skatefeed_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		logger: logger.With("component", "metrics"),
	}
}

// RecordTask counts one aggregation task outcome (ok, failed, panic).
func (m *Metrics) RecordTask(kind, outcome string) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordCandidates counts candidates entering the publish gates.
func (m *Metrics) RecordCandidates(n int) {
	if m == nil {
		return
	}
	m.candidatesTotal.Add(float64(n))
}

// RecordRejected counts a gate rejection.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// RecordRewrite counts a rewrite; fallback marks the deterministic path.
func (m *Metrics) RecordRewrite(fallback bool) {
	if m == nil {
		return
	}
	mode := "service"
	if fallback {
		mode = "fallback"
	}
	m.rewritesTotal.WithLabelValues(mode).Inc()
}

// RecordPublished counts posts persisted and the resulting store size.
func (m *Metrics) RecordPublished(added, storeSize int) {
	if m == nil {
		return
	}
	m.publishedTotal.Add(float64(added))
	m.storeSize.Set(float64(storeSize))
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
	m.lastRunTime.SetToCurrentTime()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves metrics in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts a standalone metrics HTTP server. It returns once
// the server goroutine is running.
func (m *Metrics) StartServer(port int, path string) error {
	if m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}
