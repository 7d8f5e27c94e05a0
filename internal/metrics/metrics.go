package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the push API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// ConnectionsActive tracks live subscriber connections across all channels
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "sse_connections_active", Help: "Live subscriber connections."},
	)
	// ChannelsActive tracks channels currently held by the registry
	ChannelsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "channels_active", Help: "Channels currently registered."},
	)
	// Messages counts broadcast publishes by event kind
	Messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sse_messages_total", Help: "Broadcast publishes by kind."},
		[]string{"kind"},
	)
	// Heartbeats counts heartbeat frames written to clients
	Heartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sse_heartbeats_total", Help: "Heartbeat frames sent."},
	)
	// PresenceErrors counts presence callbacks that panicked
	PresenceErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "presence_callback_errors_total", Help: "Presence callback failures."},
	)
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ConnectionsActive)
		Registry.MustRegister(ChannelsActive)
		Registry.MustRegister(Messages)
		Registry.MustRegister(Heartbeats)
		Registry.MustRegister(PresenceErrors)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
