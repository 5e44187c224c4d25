package handler

import (
	"net/http"

	"github.com/Metaform/redline/prometheus"
	"github.com/labstack/echo/v4"
)

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "redline",
	})
}

// Info returns basic service information
func Info(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"name":    "redline",
		"version": "1.0.0",
	})
}

// MetricsHandler exposes the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
