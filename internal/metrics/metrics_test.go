package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScan("accepted")
	m.ObserveScan("accepted")
	m.ObserveScan("expired")
	m.IncSessionsIssued()
	m.ObserveLogin("STUDENT", "bound")
	m.IncDeviceBindings()
	m.AddDeviceUnbinds(3)
	m.AddDeviceUnbinds(0)
	m.ObserveRateLimited("scan")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Scans.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsIssued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("STUDENT", "bound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeviceBindings))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DeviceUnbinds))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("scan")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScan("accepted")
		m.IncSessionsIssued()
		m.ObserveLogin("STAFF", "ok")
		m.IncDeviceBindings()
		m.AddDeviceUnbinds(1)
		m.ObserveRateLimited("login")
	})
}
