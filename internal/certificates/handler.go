package certificates

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	ws "certscribe/event-portal/event-portal-backend/internal/notifications/websocket"
	"certscribe/event-portal/event-portal-backend/internal/render"
	"certscribe/event-portal/event-portal-backend/internal/roster"
	"certscribe/event-portal/event-portal-backend/internal/session"
)

// Handler handles HTTP requests for certificate issuance
type Handler struct {
	service *Service
	store   *session.Store
	hub     *ws.Hub
	logger  *zap.Logger
}

// NewHandler creates a new certificates handler
func NewHandler(service *Service, store *session.Store, hub *ws.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		hub:     hub,
		logger:  logger,
	}
}

// RegisterRoutes registers issuance routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/roster", h.uploadRoster)
	router.GET("/participants", h.listParticipants)
	router.PUT("/event", h.setEvent)

	certs := router.Group("/certificates")
	{
		certs.GET("/preview", h.previewCertificate)
		certs.GET("/download", h.downloadCertificate)
		certs.POST("/email", h.emailCertificates)
		certs.GET("/batches/:id", h.getBatch)
	}

	router.GET("/ws/progress", h.progressSocket)
}

// uploadRoster handles POST /api/v1/roster
func (h *Handler) uploadRoster(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roster file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded roster", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	result, err := roster.Parse(fileHeader.Filename, file)
	if err != nil {
		if errors.Is(err, roster.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to parse roster", zap.Error(err), zap.String("filename", fileHeader.Filename))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if event := c.PostForm("event"); event != "" {
		h.store.SetEventLabel(event)
	}
	h.store.SetParticipants(result.Participants)

	h.logger.Info("Roster imported",
		zap.Int("participants", len(result.Participants)),
		zap.Int("skipped_rows", result.SkippedRows))

	c.JSON(http.StatusOK, RosterUploadResponse{
		Imported:    len(result.Participants),
		SkippedRows: result.SkippedRows,
		EventLabel:  h.store.EventLabel(),
	})
}

// listParticipants handles GET /api/v1/participants
func (h *Handler) listParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"event_label":  h.store.EventLabel(),
		"participants": h.store.Participants(),
	})
}

// setEvent handles PUT /api/v1/event
func (h *Handler) setEvent(c *gin.Context) {
	var req SetEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.store.SetEventLabel(req.EventLabel)
	c.JSON(http.StatusOK, gin.H{"event_label": req.EventLabel})
}

// previewCertificate handles GET /api/v1/certificates/preview
func (h *Handler) previewCertificate(c *gin.Context) {
	name := c.Query("name")

	doc, err := h.service.Preview(c.Request.Context(), name)
	if err != nil {
		h.renderFailure(c, err)
		return
	}

	c.Header("Content-Disposition", "inline")
	c.Data(http.StatusOK, "application/pdf", doc)
}

// downloadCertificate handles GET /api/v1/certificates/download
func (h *Handler) downloadCertificate(c *gin.Context) {
	name := c.Query("name")

	cert, doc, err := h.service.Issue(c.Request.Context(), name)
	if err != nil {
		h.renderFailure(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.Filename))
	c.Header("X-Document-Digest", cert.Digest)
	c.Data(http.StatusOK, "application/pdf", doc)
}

// emailCertificates handles POST /api/v1/certificates/email
func (h *Handler) emailCertificates(c *gin.Context) {
	batchID, total, err := h.service.StartBatch(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoRecipients) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrMailerNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to start issuance batch", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, BatchStartedResponse{
		BatchID: batchID.String(),
		Total:   total,
	})
}

// getBatch handles GET /api/v1/certificates/batches/:id
func (h *Handler) getBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	batch, ok := h.service.BatchStatus(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// progressSocket handles GET /api/v1/ws/progress
func (h *Handler) progressSocket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "progress socket is not enabled"})
		return
	}
	if err := h.hub.HandleConnection(c.Writer, c.Request); err != nil {
		h.logger.Error("Failed to upgrade progress socket", zap.Error(err))
	}
}

// renderFailure maps renderer errors onto HTTP statuses.
func (h *Handler) renderFailure(c *gin.Context, err error) {
	if errors.Is(err, render.ErrEmptyRecipient) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("Failed to render certificate", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
