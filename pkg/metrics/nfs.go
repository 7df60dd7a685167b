package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NFSMetrics provides observability for the NFS protocol front end.
//
// Implementations collect request, connection and framing metrics. The
// interface is optional: components handed a nil NFSMetrics fall back to the
// no-op implementation.
type NFSMetrics interface {
	// RecordRequest records a completed request with its procedure name,
	// NFS status and processing duration.
	RecordRequest(procedure string, status uint32, duration time.Duration)

	// RecordRequestStart increments the in-flight gauge for a procedure.
	RecordRequestStart(procedure string)

	// RecordRequestEnd decrements the in-flight gauge for a procedure.
	RecordRequestEnd(procedure string)

	// RecordRejection counts an RPC-level rejection (wrong program,
	// version mismatch, unknown procedure, garbage arguments, system
	// error). The reason label carries the accept/reject stat name.
	RecordRejection(reason string)

	// RecordBytesTransferred counts payload bytes by direction ("read" or
	// "write").
	RecordBytesTransferred(direction string, bytes int64)

	// SetActiveConnections updates the live connection gauge.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted counts an accepted or handed-off connection.
	RecordConnectionAccepted()

	// RecordConnectionClosed counts a closed connection.
	RecordConnectionClosed()

	// RecordTakeover counts a completed server takeover handoff.
	RecordTakeover()
}

type nfsMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	requestsInFlight    *prometheus.GaugeVec
	rejectionsTotal     *prometheus.CounterVec
	bytesTransferred    *prometheus.CounterVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	takeoversTotal      prometheus.Counter
}

// NewNFSMetrics creates a Prometheus-backed NFSMetrics instance, or the
// no-op implementation when the registry was never initialized.
func NewNFSMetrics() NFSMetrics {
	if !IsEnabled() {
		return &noopNFSMetrics{}
	}

	reg := GetRegistry()

	return &nfsMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftfs_nfs_requests_total",
				Help: "Total number of NFS requests by procedure and status",
			},
			[]string{"procedure", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "driftfs_nfs_request_duration_seconds",
				Help: "Duration of NFS request processing in seconds",
				Buckets: []float64{
					0.001, 0.005, 0.01, 0.025, 0.05, 0.1,
					0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
				},
			},
			[]string{"procedure"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "driftfs_nfs_requests_in_flight",
				Help: "Current number of NFS requests being processed",
			},
			[]string{"procedure"},
		),
		rejectionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftfs_nfs_rejections_total",
				Help: "Total RPC-level rejections by accept/reject stat",
			},
			[]string{"reason"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftfs_nfs_bytes_transferred_total",
				Help: "Total payload bytes transferred via NFS operations",
			},
			[]string{"direction"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "driftfs_nfs_active_connections",
				Help: "Current number of active NFS connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "driftfs_nfs_connections_accepted_total",
				Help: "Total number of NFS connections accepted or handed off",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "driftfs_nfs_connections_closed_total",
				Help: "Total number of NFS connections closed",
			},
		),
		takeoversTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "driftfs_nfs_takeovers_total",
				Help: "Total number of completed server takeovers",
			},
		),
	}
}

func (m *nfsMetrics) RecordRequest(procedure string, status uint32, duration time.Duration) {
	m.requestsTotal.WithLabelValues(procedure, strconv.FormatUint(uint64(status), 10)).Inc()
	m.requestDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

func (m *nfsMetrics) RecordRequestStart(procedure string) {
	m.requestsInFlight.WithLabelValues(procedure).Inc()
}

func (m *nfsMetrics) RecordRequestEnd(procedure string) {
	m.requestsInFlight.WithLabelValues(procedure).Dec()
}

func (m *nfsMetrics) RecordRejection(reason string) {
	m.rejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *nfsMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *nfsMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *nfsMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *nfsMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *nfsMetrics) RecordTakeover() {
	m.takeoversTotal.Inc()
}

// noopNFSMetrics is the zero-overhead fallback used when metrics are
// disabled.
type noopNFSMetrics struct{}

func (noopNFSMetrics) RecordRequest(procedure string, status uint32, duration time.Duration) {}
func (noopNFSMetrics) RecordRequestStart(procedure string)                                   {}
func (noopNFSMetrics) RecordRequestEnd(procedure string)                                     {}
func (noopNFSMetrics) RecordRejection(reason string)                                         {}
func (noopNFSMetrics) RecordBytesTransferred(direction string, bytes int64)                  {}
func (noopNFSMetrics) SetActiveConnections(count int32)                                      {}
func (noopNFSMetrics) RecordConnectionAccepted()                                             {}
func (noopNFSMetrics) RecordConnectionClosed()                                               {}
func (noopNFSMetrics) RecordTakeover()                                                       {}
