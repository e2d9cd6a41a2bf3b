package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles Prometheus metrics collection.
// A nil *MetricsCollector is valid and records nothing.
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	authorizationDecisions *prometheus.CounterVec
	loginAttempts          *prometheus.CounterVec
	forcedLogouts          prometheus.Counter
	transitionsTotal       *prometheus.CounterVec
	slotConflicts          *prometheus.CounterVec
	auditWrites            *prometheus.CounterVec
	systemErrors           *prometheus.CounterVec
}

// NewMetricsCollector creates a collector backed by its own registry
func NewMetricsCollector(serviceName string) *MetricsCollector {
	registry := prometheus.NewRegistry()
	mc := &MetricsCollector{
		serviceName: serviceName,
		registry:    registry,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code", "service"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "service"},
		),
		authorizationDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authorization_decisions_total",
				Help: "Role gate and resource access decisions by outcome and reason",
			},
			[]string{"outcome", "reason", "service"},
		),
		loginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of password login attempts",
			},
			[]string{"status", "service"},
		),
		forcedLogouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "forced_logouts_total",
				Help:        "Sessions terminated because the account is no longer active",
				ConstLabels: prometheus.Labels{"service": serviceName},
			},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "appointment_transitions_total",
				Help: "Appointment state machine transitions by action and result",
			},
			[]string{"action", "from", "result", "service"},
		),
		slotConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slot_conflicts_total",
				Help: "Slot conflicts detected at proposal time or at commit",
			},
			[]string{"kind", "stage", "service"},
		),
		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_writes_total",
				Help: "Audit entries written per sink",
			},
			[]string{"sink", "success", "service"},
		),
		systemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "system_errors_total",
				Help: "Total number of system errors",
			},
			[]string{"error_type", "component", "service"},
		),
	}

	registry.MustRegister(
		mc.httpRequestsTotal,
		mc.httpRequestDuration,
		mc.authorizationDecisions,
		mc.loginAttempts,
		mc.forcedLogouts,
		mc.transitionsTotal,
		mc.slotConflicts,
		mc.auditWrites,
		mc.systemErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return mc
}

// Registry exposes the underlying registry for tests and extra collectors
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}

// RecordHTTPRequest records HTTP request metrics
func (mc *MetricsCollector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}
	mc.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode), mc.serviceName).Inc()
	mc.httpRequestDuration.WithLabelValues(method, route, mc.serviceName).Observe(duration.Seconds())
}

// RecordAuthorization records a gate or resource access decision
func (mc *MetricsCollector) RecordAuthorization(outcome, reason string) {
	if mc == nil {
		return
	}
	mc.authorizationDecisions.WithLabelValues(outcome, reason, mc.serviceName).Inc()
}

// RecordLogin records a login attempt
func (mc *MetricsCollector) RecordLogin(success bool) {
	if mc == nil {
		return
	}
	status := "failure"
	if success {
		status = "success"
	}
	mc.loginAttempts.WithLabelValues(status, mc.serviceName).Inc()
}

// RecordForcedLogout counts a session invalidated by the gate
func (mc *MetricsCollector) RecordForcedLogout() {
	if mc == nil {
		return
	}
	mc.forcedLogouts.Inc()
}

// RecordTransition records a state machine attempt; result is "ok" or a reason code
func (mc *MetricsCollector) RecordTransition(action, from, result string) {
	if mc == nil {
		return
	}
	mc.transitionsTotal.WithLabelValues(action, from, result, mc.serviceName).Inc()
}

// RecordSlotConflict records a conflict; stage is "propose" or "commit"
func (mc *MetricsCollector) RecordSlotConflict(kind, stage string) {
	if mc == nil {
		return
	}
	mc.slotConflicts.WithLabelValues(kind, stage, mc.serviceName).Inc()
}

// RecordAuditWrite records an audit sink write
func (mc *MetricsCollector) RecordAuditWrite(sink string, success bool) {
	if mc == nil {
		return
	}
	mc.auditWrites.WithLabelValues(sink, strconv.FormatBool(success), mc.serviceName).Inc()
}

// RecordSystemError records a system error
func (mc *MetricsCollector) RecordSystemError(errorType, component string) {
	if mc == nil {
		return
	}
	mc.systemErrors.WithLabelValues(errorType, component, mc.serviceName).Inc()
}

// Handler returns the Prometheus scrape handler
func (mc *MetricsCollector) Handler() http.Handler {
	if mc == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
