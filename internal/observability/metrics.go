package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oscctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests on the control surface by operation.",
		},
		[]string{"node", "method", "operation", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oscctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "operation", "status"},
	)
	httpDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oscctl",
			Subsystem: "http",
			Name:      "denied_total",
			Help:      "Control requests refused for a missing or wrong token.",
		},
		[]string{"node", "operation"},
	)
	transportConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oscctl",
			Subsystem: "transport",
			Name:      "connects_total",
			Help:      "UDP connect attempts by outcome (opened, reused, failed).",
		},
		[]string{"outcome"},
	)
	transportDatagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oscctl",
			Subsystem: "transport",
			Name:      "datagrams_total",
			Help:      "OSC datagrams handed to the OS, by failure kind (none on success).",
		},
		[]string{"kind"},
	)
	transportBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oscctl",
			Subsystem: "transport",
			Name:      "bytes_total",
			Help:      "Encoded OSC bytes written.",
		},
	)
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oscctl",
			Subsystem: "router",
			Name:      "dispatch_total",
			Help:      "Router sends by dispatch kind and success.",
		},
		[]string{"kind", "success"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oscctl",
			Subsystem: "router",
			Name:      "dispatch_duration_seconds",
			Help:      "Router send duration in seconds, including implicit reconnect.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			httpDenied,
			transportConnects,
			transportDatagrams,
			transportBytes,
			dispatchTotal,
			dispatchDuration,
		)
	})
}

func RecordHTTPRequest(node, method, operation string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, operation, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, operation, statusLabel).Observe(duration.Seconds())
}

func RecordDenied(node, operation string) {
	RegisterMetrics()
	httpDenied.WithLabelValues(node, operation).Inc()
}

func RecordConnect(outcome string) {
	RegisterMetrics()
	transportConnects.WithLabelValues(outcome).Inc()
}

// RecordDatagram counts one send attempt; kind is "none" when it succeeded.
func RecordDatagram(kind string, size int) {
	RegisterMetrics()
	transportDatagrams.WithLabelValues(kind).Inc()
	if size > 0 {
		transportBytes.Add(float64(size))
	}
}

func RecordDispatch(kind string, duration time.Duration, success bool) {
	RegisterMetrics()
	dispatchTotal.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
	dispatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
