// Package handler implements the inbound REST surface: thin controllers
// that bind requests, call the services, and map errors to HTTP statuses.
package handler

import (
	"net/http"
	"strconv"

	"github.com/Metaform/redline/internal/service"
	"github.com/Metaform/redline/pkg/logger"
	"github.com/Metaform/redline/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RedlineHandler serves the tenant, participant, and provider routes
type RedlineHandler struct {
	tenants   *service.TenantService
	providers *service.ProviderService
}

// NewRedlineHandler creates the provisioning handler
func NewRedlineHandler(tenants *service.TenantService, providers *service.ProviderService) *RedlineHandler {
	return &RedlineHandler{tenants: tenants, providers: providers}
}

// Register wires the handler's routes into the given group
func (h *RedlineHandler) Register(g *echo.Group) {
	g.GET("/dataspaces", h.ListDataspaces)
	g.POST("/dataspaces", h.CreateDataspace)
	g.GET("/service-providers", h.ListServiceProviders)
	g.POST("/service-providers", h.CreateServiceProvider)
	g.POST("/service-providers/:providerId/tenants", h.RegisterTenant)
	g.GET("/service-providers/:providerId/tenants/:tenantId", h.GetTenant)
	g.GET("/service-providers/:providerId/tenants/:tenantId/participants/:participantId", h.GetParticipant)
	g.POST("/service-providers/:providerId/tenants/:tenantId/participants/:participantId/deployments", h.DeployParticipant)
}

// ListDataspaces returns all registered dataspaces
func (h *RedlineHandler) ListDataspaces(c echo.Context) error {
	log := logger.FromEcho(c)

	dataspaces, err := h.providers.ListDataspaces(c.Request().Context())
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, dataspaces)
}

// CreateDataspace registers a new dataspace
func (h *RedlineHandler) CreateDataspace(c echo.Context) error {
	log := logger.FromEcho(c)

	var req service.NewDataspace
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse dataspace request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	dataspace, err := h.providers.CreateDataspace(c.Request().Context(), req)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusCreated, dataspace)
}

// ListServiceProviders returns all service providers
func (h *RedlineHandler) ListServiceProviders(c echo.Context) error {
	log := logger.FromEcho(c)

	providers, err := h.providers.ListServiceProviders(c.Request().Context())
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, providers)
}

// CreateServiceProvider registers a new service provider
func (h *RedlineHandler) CreateServiceProvider(c echo.Context) error {
	log := logger.FromEcho(c)

	var req service.NewServiceProvider
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse service provider request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	provider, err := h.providers.CreateServiceProvider(c.Request().Context(), req)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusCreated, provider)
}

// RegisterTenant creates a tenant with its initial participant. Purely
// local; no external system is contacted.
func (h *RedlineHandler) RegisterTenant(c echo.Context) error {
	log := logger.FromEcho(c)

	providerID, err := parseID(c, "providerId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid provider ID"})
	}

	var req service.NewTenantRegistration
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse tenant registration", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.TenantName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenantName is required"})
	}

	tenant, err := h.tenants.RegisterTenant(c.Request().Context(), providerID, req)
	if err != nil {
		return writeError(c, log, err)
	}
	prometheus.RecordTenantRegistration()
	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant returns a tenant aggregate
func (h *RedlineHandler) GetTenant(c echo.Context) error {
	log := logger.FromEcho(c)

	tenantID, err := parseID(c, "tenantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	tenant, err := h.tenants.GetTenant(c.Request().Context(), tenantID)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// GetParticipant returns a participant read model
func (h *RedlineHandler) GetParticipant(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	participant, err := h.tenants.GetParticipant(c.Request().Context(), participantID)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, participant)
}

// DeployParticipant provisions a participant in the fleet manager
func (h *RedlineHandler) DeployParticipant(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	var req service.NewParticipantDeployment
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse deployment request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.ParticipantID = participantID

	participant, err := h.tenants.DeployParticipant(c.Request().Context(), req)
	if err != nil {
		prometheus.RecordDeployment("failure")
		return writeError(c, log, err)
	}
	prometheus.RecordDeployment("success")
	return c.JSON(http.StatusOK, participant)
}

func parseID(c echo.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
