package handler

import (
	"errors"
	"net/http"

	"github.com/Metaform/redline/internal/client"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/internal/service"
	"github.com/Metaform/redline/pkg/oauth"
	"github.com/Metaform/redline/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// writeError maps service errors onto HTTP statuses. Gateway failures are
// surfaced as bad-gateway responses so callers can distinguish local from
// upstream faults.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var notFound *service.NotFoundError
	var mapping *model.MappingError
	var provisioning *service.ProvisioningError
	var authErr *oauth.AuthenticationError
	var transport *client.TransportError

	switch {
	case errors.As(err, &notFound):
		prometheus.RecordProvisioningError("not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound.Error()})
	case errors.As(err, &mapping):
		log.Error("External value could not be mapped", zap.Error(err))
		prometheus.RecordProvisioningError("mapping")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": mapping.Error()})
	case errors.As(err, &provisioning):
		log.Error("Provisioning step failed",
			zap.String("step", provisioning.Step),
			zap.String("system", provisioning.System),
			zap.Error(err))
		prometheus.RecordProvisioningError("gateway")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": provisioning.Error()})
	case errors.As(err, &authErr):
		log.Error("Token acquisition failed", zap.Error(err))
		prometheus.RecordProvisioningError("authentication")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "token acquisition failed"})
	case errors.As(err, &transport):
		log.Error("Gateway unreachable", zap.String("system", transport.System), zap.Error(err))
		prometheus.RecordProvisioningError("transport")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "external system unreachable"})
	default:
		log.Error("Unexpected error", zap.Error(err))
		prometheus.RecordProvisioningError("internal")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
