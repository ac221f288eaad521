package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/l1jgo/lifecycle/internal/core/action"
	"github.com/l1jgo/lifecycle/internal/core/ecs"
)

const namespace = "lifecycle"

// Metrics holds the Prometheus collectors for pools, the lifecycle engine
// and the coarse processes.
type Metrics struct {
	registry *prometheus.Registry

	poolUsed *prometheus.GaugeVec // by pool
	poolFree *prometheus.GaugeVec // by pool
	poolCap  *prometheus.GaugeVec // by pool

	created    prometheus.Gauge
	spawnDepth prometheus.Gauge

	processPhase *prometheus.GaugeVec // by process

	events     *prometheus.CounterVec // by pool and event
	hookErrors *prometheus.CounterVec // by system

	tickDuration prometheus.Histogram
}

// New creates the collectors and registers them with a private registry.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		poolUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "used_slots",
			Help:      "Occupied slots per pool",
		}, []string{"pool"}),

		poolFree: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "free_slots",
			Help:      "Free slots per pool",
		}, []string{"pool"}),

		poolCap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "capacity",
			Help:      "Total slots per pool",
		}, []string{"pool"}),

		created: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "entities_created",
			Help:      "Identities handed out since start",
		}),

		spawnDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "spawn_depth",
			Help:      "Entities currently mid-spawn",
		}),

		processPhase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "phase",
			Help:      "Current phase of each process (0 = terminated)",
		}, []string{"process"}),

		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "events_total",
			Help:      "Lifecycle milestones per pool",
		}, []string{"pool", "event"}),

		hookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "errors_total",
			Help:      "Errors returned by tick systems",
		}, []string{"system"}),

		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one full tick",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.poolUsed, m.poolFree, m.poolCap,
		m.created, m.spawnDepth,
		m.processPhase,
		m.events, m.hookErrors,
		m.tickDuration,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObservePool samples the slot counts of one pool.
func (m *Metrics) ObservePool(p ecs.Managed) {
	m.poolUsed.WithLabelValues(p.Name()).Set(float64(p.Len()))
	m.poolFree.WithLabelValues(p.Name()).Set(float64(p.FreeLen()))
	m.poolCap.WithLabelValues(p.Name()).Set(float64(p.Cap()))
}

// ObserveEngine samples the lifecycle engine counters.
func (m *Metrics) ObserveEngine(e *ecs.Engine) {
	m.created.Set(float64(e.Created()))
	m.spawnDepth.Set(float64(e.SpawnDepth()))
}

// ObserveProcess records the phase of a process, 0 once it has terminated.
func (m *Metrics) ObserveProcess(name string, phase action.Action, terminated bool) {
	v := float64(phase)
	if terminated {
		v = 0
	}
	m.processPhase.WithLabelValues(name).Set(v)
}

var noticeNames = map[ecs.NoticeKind]string{
	ecs.NoticeSpawned:   "spawned",
	ecs.NoticeActivated: "activated",
	ecs.NoticeKilled:    "killed",
	ecs.NoticeReclaimed: "reclaimed",
}

// NoticeName is the label used for a pool notice.
func NoticeName(k ecs.NoticeKind) string {
	if name, ok := noticeNames[k]; ok {
		return name
	}
	return "unknown"
}

func (m *Metrics) CountNotice(n ecs.Notice) {
	m.events.WithLabelValues(n.Pool, NoticeName(n.Kind)).Inc()
}

func (m *Metrics) CountError(system string) {
	m.hookErrors.WithLabelValues(system).Inc()
}

func (m *Metrics) ObserveTick(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
