package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/cybaware"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authorization metrics
	AuthzDecisionsTotal metric.Int64Counter
	AuthzDuration       metric.Float64Histogram

	// Authentication metrics
	LoginAttemptsTotal      metric.Int64Counter
	TokensIssuedTotal       metric.Int64Counter
	TokenVerificationsTotal metric.Int64Counter

	// HTTP metrics
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram

	// Store metrics
	DBConnectAttemptsTotal metric.Int64Counter
	DataIntegrityAlerts    metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthzDecisionsTotal, _ = meter.Int64Counter(
		"cybaware.authz.decisions.total",
		metric.WithDescription("Total number of access guard decisions by outcome"),
		metric.WithUnit("{decision}"),
	)

	m.AuthzDuration, _ = meter.Float64Histogram(
		"cybaware.authz.duration",
		metric.WithDescription("Duration of access guard evaluation"),
		metric.WithUnit("ms"),
	)

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"cybaware.auth.login_attempts.total",
		metric.WithDescription("Total number of password login attempts by result"),
		metric.WithUnit("{attempt}"),
	)

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"cybaware.auth.tokens_issued.total",
		metric.WithDescription("Total number of access tokens issued"),
		metric.WithUnit("{token}"),
	)

	m.TokenVerificationsTotal, _ = meter.Int64Counter(
		"cybaware.auth.token_verifications.total",
		metric.WithDescription("Total number of access token verifications by result"),
		metric.WithUnit("{token}"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"cybaware.http.requests.total",
		metric.WithDescription("Total number of HTTP requests by status class"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"cybaware.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	m.DBConnectAttemptsTotal, _ = meter.Int64Counter(
		"cybaware.store.connect_attempts.total",
		metric.WithDescription("Total number of database connection attempts at startup"),
		metric.WithUnit("{attempt}"),
	)

	m.DataIntegrityAlerts, _ = meter.Int64Counter(
		"cybaware.store.data_integrity_alerts.total",
		metric.WithDescription("Total number of stored records that failed validation"),
		metric.WithUnit("{alert}"),
	)

	return m
}
