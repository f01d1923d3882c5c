package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the attendance engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Scans          *prometheus.CounterVec
	SessionsIssued prometheus.Counter
	Logins         *prometheus.CounterVec
	DeviceBindings prometheus.Counter
	DeviceUnbinds  prometheus.Counter
	RateLimited    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smarttrack_scans_total",
			Help: "Scan verifications by outcome.",
		}, []string{"outcome"}),
		SessionsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "smarttrack_sessions_issued_total",
			Help: "Attendance sessions created by staff.",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smarttrack_logins_total",
			Help: "Login attempts by role and outcome.",
		}, []string{"role", "outcome"}),
		DeviceBindings: f.NewCounter(prometheus.CounterOpts{
			Name: "smarttrack_device_bindings_total",
			Help: "Student accounts bound to a device on first login.",
		}),
		DeviceUnbinds: f.NewCounter(prometheus.CounterOpts{
			Name: "smarttrack_device_unbinds_total",
			Help: "Device bindings cleared by an administrator.",
		}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "smarttrack_rate_limited_total",
			Help: "Requests refused with 429 by budget scope.",
		}, []string{"scope"}),
	}
}

func (m *Metrics) ObserveScan(outcome string) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncSessionsIssued() {
	if m == nil {
		return
	}
	m.SessionsIssued.Inc()
}

func (m *Metrics) ObserveLogin(role, outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) IncDeviceBindings() {
	if m == nil {
		return
	}
	m.DeviceBindings.Inc()
}

func (m *Metrics) AddDeviceUnbinds(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DeviceUnbinds.Add(float64(n))
}

func (m *Metrics) ObserveRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(scope).Inc()
}
