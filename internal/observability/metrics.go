package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on the default Prometheus registry at package init
// and served by the /metrics route next to the HTTP metrics.
var (
	// EngineOperations counts engine operations by name and outcome code.
	EngineOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_engine_operations_total",
		Help: "Total engine operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// EngineLatency records engine operation latency.
	EngineLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialgraph_engine_operation_latency_seconds",
		Help:    "Engine operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// ToggleRaces counts uniqueness violations absorbed as idempotent success.
	ToggleRaces = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_toggle_races_total",
		Help: "Concurrent toggle inserts resolved by the unique constraint",
	}, []string{"relation"})

	// NotificationsCreated counts notifications committed, by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_notifications_created_total",
		Help: "Total notifications created by type",
	}, []string{"type"})

	// InvalidationErrors counts failed view invalidations, either the
	// generation bump or dropping the previous generation.
	InvalidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialgraph_view_invalidation_errors_total",
		Help: "Total view invalidation signals that failed",
	})

	// RedisErrorRate counts Redis errors by operation type. Cache misses and
	// cancelled requests are not errors.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EventPublishErrors counts realtime event publish failures by broker.
	EventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_event_publish_errors_total",
		Help: "Total realtime event publish failures by broker",
	}, []string{"broker"})

	// WebSocketConnections is the gauge of open notification streams.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialgraph_websocket_connections",
		Help: "Number of open notification WebSocket connections",
	})
)

// TrackOperation returns a function that records operation latency when called (e.g. defer).
func TrackOperation(operation string) func() {
	start := time.Now()
	return func() {
		EngineLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
