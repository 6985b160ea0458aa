package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Validation metrics
	Validations        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	RecoveryScans      *prometheus.CounterVec

	// Registry metrics
	ExtensionsInstalled prometheus.Gauge
	ExtensionsEnabled   prometheus.Gauge
	InstallsTotal       prometheus.Counter
	RemovalsTotal       prometheus.Counter

	// Isolation metrics
	PartitionDerivations *prometheus.CounterVec
	PolicyRevision       prometheus.Gauge

	// Permission metrics
	GrantUpdates *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	InstalledCount    int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitedeck_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitedeck_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitedeck_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitedeck_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Validation metrics
		Validations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitedeck_package_validations_total",
				Help: "Total number of package validations",
			},
			[]string{"kind", "outcome"},
		),
		ValidationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitedeck_package_validation_duration_seconds",
				Help:    "Package validation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"kind"},
		),
		RecoveryScans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitedeck_container_recovery_scans_total",
				Help: "Total number of container payload recovery scans",
			},
			[]string{"outcome"},
		),

		// Registry metrics
		ExtensionsInstalled: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitedeck_extensions_installed",
				Help: "Number of installed extensions",
			},
		),
		ExtensionsEnabled: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitedeck_extensions_enabled",
				Help: "Number of enabled extensions",
			},
		),
		InstallsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitedeck_extension_installs_total",
				Help: "Total number of extension installs",
			},
		),
		RemovalsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitedeck_extension_removals_total",
				Help: "Total number of extension removals",
			},
		),

		// Isolation metrics
		PartitionDerivations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitedeck_partition_derivations_total",
				Help: "Total number of partition key derivations",
			},
			[]string{"scope"},
		),
		PolicyRevision: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitedeck_isolation_policy_revision",
				Help: "Current isolation policy revision",
			},
		),

		// Permission metrics
		GrantUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitedeck_permission_grant_updates_total",
				Help: "Total number of permission grant updates",
			},
			[]string{"decision"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitedeck_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitedeck_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sitedeck_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordValidation records a package validation and its outcome
func (m *Metrics) RecordValidation(kind, outcome string, duration time.Duration) {
	m.Validations.WithLabelValues(kind, outcome).Inc()
	m.ValidationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRecoveryScan records a container payload recovery scan
func (m *Metrics) RecordRecoveryScan(outcome string) {
	m.RecoveryScans.WithLabelValues(outcome).Inc()
}

// RecordPartitionDerivation records a partition key derivation
func (m *Metrics) RecordPartitionDerivation(scope string) {
	m.PartitionDerivations.WithLabelValues(scope).Inc()
}

// RecordGrantUpdate records a permission grant update
func (m *Metrics) RecordGrantUpdate(allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.GrantUpdates.WithLabelValues(decision).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetExtensionCounts sets the installed and enabled extension gauges
func (m *Metrics) SetExtensionCounts(installed, enabled int) {
	m.ExtensionsInstalled.Set(float64(installed))
	m.ExtensionsEnabled.Set(float64(enabled))
	m.mu.Lock()
	m.snapshot.InstalledCount = int64(installed)
	m.mu.Unlock()
}

// IncInstalls increments the install counter
func (m *Metrics) IncInstalls() {
	m.InstallsTotal.Inc()
}

// IncRemovals increments the removal counter
func (m *Metrics) IncRemovals() {
	m.RemovalsTotal.Inc()
}

// SetPolicyRevision sets the isolation policy revision gauge
func (m *Metrics) SetPolicyRevision(rev uint64) {
	m.PolicyRevision.Set(float64(rev))
}

// IncWSConnections increments the WebSocket connections gauge
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements the WebSocket connections gauge
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// GetSnapshot returns a copy of the current metrics snapshot
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Uptime returns the time since the collector was created
func (m *Metrics) UptimeDuration() time.Duration {
	return time.Since(m.startTime)
}
