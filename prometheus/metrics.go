package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Tenant registration counter
	TenantRegistrationCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redline_tenant_registrations_total",
			Help: "Total number of tenant registrations",
		},
	)

	// Participant deployment counter
	DeploymentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redline_deployments_total",
			Help: "Total number of participant deployments by outcome",
		},
		[]string{"outcome"}, // outcome is "success" or "failure"
	)

	// File publication counter
	PublicationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redline_publications_total",
			Help: "Total number of file publications by outcome",
		},
		[]string{"outcome"},
	)

	// Outbound gateway call counter
	GatewayCallCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redline_gateway_calls_total",
			Help: "Total number of outbound gateway calls by system and outcome",
		},
		[]string{"system", "outcome"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redline_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Provisioning error counter
	ProvisioningErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redline_provisioning_errors_total",
			Help: "Total number of provisioning errors by type",
		},
		[]string{"type"}, // type can be "not_found", "mapping", "gateway", "transport" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redline_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Pipeline step duration
	PipelineStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redline_pipeline_step_duration_seconds",
			Help:    "Duration of provisioning pipeline steps in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redline_info",
			Help: "Information about the provisioning service",
		},
		[]string{"version"},
	)

	// Registered tenants
	RegisteredTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redline_registered_tenants",
			Help: "Number of locally registered tenants",
		},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(TenantRegistrationCounter)
	prometheus.MustRegister(DeploymentCounter)
	prometheus.MustRegister(PublicationCounter)
	prometheus.MustRegister(GatewayCallCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(ProvisioningErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PipelineStepDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(RegisteredTenantsGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTenantRegistration increments the registration counter
func RecordTenantRegistration() {
	TenantRegistrationCounter.Inc()
	RegisteredTenantsGauge.Inc()
}

// RecordDeployment records a participant deployment outcome
func RecordDeployment(outcome string) {
	DeploymentCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordPublication records a file publication outcome
func RecordPublication(outcome string) {
	PublicationCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordGatewayCall records an outbound gateway call by system and outcome
func RecordGatewayCall(system, outcome string) {
	GatewayCallCounter.With(prometheus.Labels{"system": system, "outcome": outcome}).Inc()
}

// RecordProvisioningError records a provisioning error by type
func RecordProvisioningError(errorType string) {
	ProvisioningErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// TrackPipelineStep measures pipeline step durations
func TrackPipelineStep(step string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		PipelineStepDuration.With(prometheus.Labels{
			"step": step,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}
