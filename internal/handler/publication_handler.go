package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Metaform/redline/internal/client/management"
	"github.com/Metaform/redline/internal/service"
	"github.com/Metaform/redline/pkg/logger"
	"github.com/Metaform/redline/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PublicationHandler serves the file publication and contract routes
type PublicationHandler struct {
	publications *service.PublicationService
}

// NewPublicationHandler creates the publication handler
func NewPublicationHandler(publications *service.PublicationService) *PublicationHandler {
	return &PublicationHandler{publications: publications}
}

// Register wires the handler's routes into the given group
func (h *PublicationHandler) Register(g *echo.Group) {
	g.POST("/participants/:participantId/files", h.PublishFile)
	g.GET("/participants/:participantId/files", h.ListFiles)
	g.GET("/participants/:participantId/files/:fileId", h.DownloadFile)
	g.POST("/participants/:participantId/contracts", h.RequestContract)
	g.GET("/participants/:participantId/contracts/:negotiationId", h.GetNegotiation)
	g.POST("/participants/:participantId/dataplanes", h.RegisterDataplane)
}

// RegisterDataplane announces a data plane endpoint for a participant
func (h *PublicationHandler) RegisterDataplane(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	var registration management.DataplaneRegistration
	if err := c.Bind(&registration); err != nil {
		log.Error("Failed to parse dataplane registration", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if registration.URL == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "url is required"})
	}

	if err := h.publications.RegisterDataplane(c.Request().Context(), participantID, registration); err != nil {
		return writeError(c, log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PublishFile runs the publication pipeline for an uploaded file. The
// request is multipart: a "file" part plus optional "metadata" JSON field.
func (h *PublicationHandler) PublishFile(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Error("Missing file part", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file part is required"})
	}

	metadata := map[string]string{}
	if raw := c.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			log.Error("Invalid metadata field", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "metadata must be a JSON object of strings"})
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded file", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not read upload"})
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	file, err := h.publications.PublishFile(c.Request().Context(), participantID, metadata, fileHeader.Filename, contentType, src)
	if err != nil {
		prometheus.RecordPublication("failure")
		return writeError(c, log, err)
	}
	prometheus.RecordPublication("success")
	return c.JSON(http.StatusCreated, file)
}

// ListFiles returns the published files recorded for a participant
func (h *PublicationHandler) ListFiles(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	files, err := h.publications.ListFiles(c.Request().Context(), participantID)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, files)
}

// DownloadFile streams a published file's bytes back to the caller
func (h *PublicationHandler) DownloadFile(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}
	fileID := c.Param("fileId")

	data, record, err := h.publications.DownloadFile(c.Request().Context(), participantID, fileID)
	if err != nil {
		return writeError(c, log, err)
	}

	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+record.FileName+`"`)
	return c.Blob(http.StatusOK, contentType, data)
}

// RequestContract starts a contract negotiation on behalf of a participant
func (h *PublicationHandler) RequestContract(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	var req management.ContractRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse contract request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	response, err := h.publications.RequestContract(c.Request().Context(), participantID, req)
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusCreated, response)
}

// GetNegotiation returns the state of a contract negotiation
func (h *PublicationHandler) GetNegotiation(c echo.Context) error {
	log := logger.FromEcho(c)

	participantID, err := parseID(c, "participantId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant ID"})
	}

	negotiation, err := h.publications.GetNegotiation(c.Request().Context(), participantID, c.Param("negotiationId"))
	if err != nil {
		return writeError(c, log, err)
	}
	return c.JSON(http.StatusOK, negotiation)
}
