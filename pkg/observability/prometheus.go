package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus implements every hook interface on top of client_golang
// collectors. All metrics use the "tracelane_" prefix.
type Prometheus struct {
	syncIssued    *prometheus.CounterVec
	syncApplied   prometheus.Counter
	syncDiscarded prometheus.Counter
	syncFailed    prometheus.Counter
	syncDuration  prometheus.Histogram
	windowNodes   prometheus.Gauge
	windowEdges   prometheus.Gauge

	cacheOps   *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec

	rpcTotal    *prometheus.CounterVec
	rpcErrors   *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		syncIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tracelane_sync_issued_total",
			Help: "Range queries issued by the viewer",
		}, []string{"forced"}),
		syncApplied: f.NewCounter(prometheus.CounterOpts{
			Name: "tracelane_sync_applied_total",
			Help: "Range responses merged into the live graph",
		}),
		syncDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "tracelane_sync_discarded_total",
			Help: "Range responses dropped as stale",
		}),
		syncFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "tracelane_sync_failed_total",
			Help: "Range queries that failed in transport or parsing",
		}),
		syncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracelane_sync_duration_seconds",
			Help:    "Time from issuing a range query to applying its response",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		windowNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "tracelane_window_nodes",
			Help: "Nodes held after the last applied sync",
		}),
		windowEdges: f.NewGauge(prometheus.GaugeOpts{
			Name: "tracelane_window_edges",
			Help: "Edges held after the last applied sync",
		}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tracelane_cache_operations_total",
			Help: "Response cache operations by key type and result",
		}, []string{"key_type", "result"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tracelane_cache_written_bytes_total",
			Help: "Bytes written to the response cache",
		}, []string{"key_type"}),
		rpcTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tracelane_rpc_requests_total",
			Help: "Backend calls by method, route and status",
		}, []string{"method", "route", "status"}),
		rpcErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tracelane_rpc_errors_total",
			Help: "Backend calls that failed in transport",
		}, []string{"method", "route"}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracelane_rpc_duration_seconds",
			Help:    "Backend call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *Prometheus) OnSyncIssued(_ context.Context, _ uint64, _ int, forced bool) {
	p.syncIssued.WithLabelValues(strconv.FormatBool(forced)).Inc()
}

func (p *Prometheus) OnSyncApplied(_ context.Context, _ uint64, nodes, edges int, d time.Duration) {
	p.syncApplied.Inc()
	p.syncDuration.Observe(d.Seconds())
	p.windowNodes.Set(float64(nodes))
	p.windowEdges.Set(float64(edges))
}

func (p *Prometheus) OnSyncDiscarded(context.Context, uint64) { p.syncDiscarded.Inc() }

func (p *Prometheus) OnSyncFailed(context.Context, uint64, error) { p.syncFailed.Inc() }

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnRequest is a no-op: requests are counted once they complete.
func (p *Prometheus) OnRequest(context.Context, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.rpcTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.rpcDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, route string, _ error) {
	p.rpcErrors.WithLabelValues(method, route).Inc()
}
