package handler

import (
	"net/http"
	"strconv"

	"github.com/Metaform/redline/internal/client/identityhub"
	"github.com/Metaform/redline/internal/service"
	"github.com/Metaform/redline/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IdentityHandler serves the participant identity routes
type IdentityHandler struct {
	identity *service.IdentityService
}

// NewIdentityHandler creates the identity handler
func NewIdentityHandler(identity *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

// Register wires the handler's routes into the given group
func (h *IdentityHandler) Register(g *echo.Group) {
	g.GET("/participants/:participantId/identity", h.GetParticipantContext)
	g.GET("/participants/:participantId/credentials", h.ListCredentials)
	g.POST("/participants/:participantId/credentials/request", h.RequestCredential)
	g.GET("/participants/:participantId/keypairs", h.ListKeyPairs)
	g.PUT("/participants/:participantId/keypairs", h.AddKeyPair)
}

// GetParticipantContext returns the identity hub context of a participant
func (h *IdentityHandler) GetParticipantContext(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	participantContext, err := h.identity.GetParticipantContext(c.Request().Context(), participantID)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, participantContext)
}

// ListCredentials returns the credentials held for a participant
func (h *IdentityHandler) ListCredentials(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	credentials, err := h.identity.ListCredentials(c.Request().Context(), participantID, c.QueryParam("type"))
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, credentials)
}

// RequestCredential asks an issuer for a credential on behalf of a participant
func (h *IdentityHandler) RequestCredential(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	var req identityhub.CredentialRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse credential request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := h.identity.RequestCredential(c.Request().Context(), participantID, req); err != nil {
		return writeError(c, log, err)
	}
	return c.NoContent(http.StatusAccepted)
}

// ListKeyPairs returns the key pairs bound to a participant
func (h *IdentityHandler) ListKeyPairs(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	keyPairs, err := h.identity.ListKeyPairs(c.Request().Context(), participantID)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, keyPairs)
}

// AddKeyPair creates a new key pair for a participant
func (h *IdentityHandler) AddKeyPair(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	makeDefault, _ := strconv.ParseBool(c.QueryParam("makeDefault"))

	var descriptor identityhub.KeyDescriptor
	if err := c.Bind(&descriptor); err != nil {
		log.Error("Failed to parse key descriptor", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := h.identity.AddKeyPair(c.Request().Context(), participantID, descriptor, makeDefault); err != nil {
		return writeError(c, log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
