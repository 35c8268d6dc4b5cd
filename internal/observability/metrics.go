package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservectl",
			Subsystem: "engine",
			Name:      "commands_total",
			Help:      "Total commands processed, by transport, operation, and outcome.",
		},
		[]string{"transport", "op", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reservectl",
			Subsystem: "engine",
			Name:      "command_duration_seconds",
			Help:      "Command processing duration in seconds, including lock waits.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transport", "op"},
	)
	lockContention = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservectl",
			Subsystem: "engine",
			Name:      "lock_contention_total",
			Help:      "Busy notices sent because a table lock was already held.",
		},
		[]string{"resource"},
	)
	datagramReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservectl",
			Subsystem: "datagram",
			Name:      "replays_total",
			Help:      "Cached replies replayed for retransmitted datagrams.",
		},
	)
	datagramQueueDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservectl",
			Subsystem: "datagram",
			Name:      "queue_drops_total",
			Help:      "Datagrams shed because a worker queue was full.",
		},
	)
	datagramMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reservectl",
			Subsystem: "datagram",
			Name:      "malformed_total",
			Help:      "Datagrams dropped because the header failed to decode.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reservectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reservectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			commandsTotal,
			commandDuration,
			lockContention,
			datagramReplays,
			datagramQueueDrops,
			datagramMalformed,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordCommand(transport, op, outcome string, duration time.Duration) {
	RegisterMetrics()
	commandsTotal.WithLabelValues(transport, op, outcome).Inc()
	commandDuration.WithLabelValues(transport, op).Observe(duration.Seconds())
}

func RecordLockContention(resource string) {
	RegisterMetrics()
	lockContention.WithLabelValues(resource).Inc()
}

func RecordDatagramReplay() {
	RegisterMetrics()
	datagramReplays.Inc()
}

func RecordDatagramQueueDrop() {
	RegisterMetrics()
	datagramQueueDrops.Inc()
}

func RecordDatagramMalformed() {
	RegisterMetrics()
	datagramMalformed.Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
