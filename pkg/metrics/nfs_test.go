package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopWhenRegistryDisabled(t *testing.T) {
	// The registry is write-once and package-global, so this test must run
	// against the pre-initialization state. The prometheus-backed test below
	// initializes it; test order within a package file set keeps this one
	// first only by accident, so check the state instead of assuming it.
	if IsEnabled() {
		t.Skip("registry already initialized by another test")
	}

	m := NewNFSMetrics()
	_, ok := m.(*noopNFSMetrics)
	assert.True(t, ok, "disabled registry must yield the no-op implementation")

	// No-op calls must not panic.
	m.RecordRequest("GETATTR", 0, time.Millisecond)
	m.RecordRejection("GARBAGE_ARGS")
	m.SetActiveConnections(3)
}

func TestPrometheusMetrics(t *testing.T) {
	InitRegistry()
	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	// Initialization is idempotent.
	InitRegistry()

	m, ok := NewNFSMetrics().(*nfsMetrics)
	require.True(t, ok)

	m.RecordRequest("GETATTR", 0, 5*time.Millisecond)
	m.RecordRequest("GETATTR", 70, time.Millisecond)
	m.RecordRequestStart("READ")
	m.RecordRequestStart("READ")
	m.RecordRequestEnd("READ")
	m.RecordRejection("PROC_UNAVAIL")
	m.RecordBytesTransferred("read", 1024)
	m.RecordBytesTransferred("write", 512)
	m.SetActiveConnections(2)
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.RecordTakeover()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GETATTR", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GETATTR", "70")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsInFlight.WithLabelValues("READ")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("PROC_UNAVAIL")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("read")))
	assert.Equal(t, 512.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("write")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionsClosed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.takeoversTotal))
}
