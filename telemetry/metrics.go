package telemetry

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes navigation counters and gauges to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	tickDuration  prometheus.Histogram
	agents        *prometheus.GaugeVec
	orders        prometheus.Counter
	builds        prometheus.Counter
	buildDuration prometheus.Histogram
	cellsReset    prometheus.Counter
	overlaps      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one simulation tick.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1},
		}),
		agents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents",
			Help:      "Agents per navigation state.",
		}, []string{"state"}),
		orders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Destination requests drained.",
		}),
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flowfield_builds_total",
			Help:      "Flow fields built.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flowfield_build_duration_seconds",
			Help:      "Wall time of one integration and flow pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		cellsReset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "footprint_cells_reset_total",
			Help:      "Cells returned to baseline cost under agent footprints.",
		}),
		overlaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overlapping_pairs",
			Help:      "Agent pairs closer than their combined radii at the last window.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.tickDuration, m.agents, m.orders, m.builds,
		m.buildDuration, m.cellsReset, m.overlaps,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveTick records one tick duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

// SetStates publishes agent counts per state.
func (m *Metrics) SetStates(idle, active, arrived int) {
	if m == nil {
		return
	}
	m.agents.WithLabelValues("idle").Set(float64(idle))
	m.agents.WithLabelValues("active").Set(float64(active))
	m.agents.WithLabelValues("arrived").Set(float64(arrived))
}

// IncOrders counts drained requests.
func (m *Metrics) IncOrders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orders.Add(float64(n))
}

// ObserveBuild records one flow field build.
func (m *Metrics) ObserveBuild(d time.Duration, reset int) {
	if m == nil {
		return
	}
	m.builds.Inc()
	m.buildDuration.Observe(d.Seconds())
	if reset > 0 {
		m.cellsReset.Add(float64(reset))
	}
}

// SetOverlaps publishes the overlapping pair count.
func (m *Metrics) SetOverlaps(n int) {
	if m == nil {
		return
	}
	m.overlaps.Set(float64(n))
}

// ServeMetrics starts an HTTP server exposing g on addr/metrics. The server
// runs in its own goroutine; callers stop it with Shutdown.
func ServeMetrics(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
