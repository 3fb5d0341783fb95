package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gitrdm/pdispersion/pkg/dispersion"
	"github.com/gitrdm/pdispersion/pkg/fd"
)

// searchMetrics exports search events to Prometheus. It implements
// fd.SearchObserver and is safe for the concurrent portfolio workers.
type searchMetrics struct {
	nodes      prometheus.Counter
	backtracks prometheus.Counter
	failures   *prometheus.CounterVec
	solutions  prometheus.Counter
	restarts   prometheus.Counter
	depth      prometheus.Histogram
	best       prometheus.Gauge
	threshold  prometheus.Gauge
}

func newSearchMetrics(reg prometheus.Registerer) *searchMetrics {
	m := &searchMetrics{
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdd_nodes_total",
			Help: "Search nodes explored",
		}),
		backtracks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdd_backtracks_total",
			Help: "Backtracks performed",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdd_failures_total",
			Help: "Propagation failures by constraint type",
		}, []string{"constraint"}),
		solutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdd_solutions_total",
			Help: "Leaves accepted by the search",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdd_restarts_total",
			Help: "Search restarts",
		}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdd_node_depth",
			Help:    "Depth of explored nodes",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		best: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdd_best_objective",
			Help: "Minimum pairwise distance of the best placement found",
		}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pdd_ratchet_threshold",
			Help: "Distance every remaining pair must exceed",
		}),
	}
	reg.MustRegister(m.nodes, m.backtracks, m.failures, m.solutions, m.restarts, m.depth, m.best, m.threshold)
	return m
}

func (m *searchMetrics) RecordNode(depth int) {
	m.nodes.Inc()
	m.depth.Observe(float64(depth))
}

func (m *searchMetrics) RecordBacktrack() { m.backtracks.Inc() }

func (m *searchMetrics) RecordFailure(constraint string) {
	m.failures.WithLabelValues(constraint).Inc()
}

func (m *searchMetrics) RecordSolution() { m.solutions.Inc() }

func (m *searchMetrics) RecordRestart() { m.restarts.Inc() }

// improved publishes a new best objective. Improvements arrive in increasing
// order, so the ratchet sits one above the latest.
func (m *searchMetrics) improved(imp dispersion.Improvement) {
	m.best.Set(float64(imp.Objective))
	m.threshold.Set(float64(imp.Objective + 1))
}

var _ fd.SearchObserver = (*searchMetrics)(nil)

// serveMetrics exposes reg on addr until the returned shutdown is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *fd.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
