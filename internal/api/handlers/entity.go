package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/silverstate/nvsos-api/internal/services"
	"github.com/silverstate/nvsos-api/internal/utils"
	"github.com/sirupsen/logrus"
)

// EntityHandler handles Nevada entity lookup requests
type EntityHandler struct {
	entityService services.EntityServiceInterface
	logger        *logrus.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(entityService services.EntityServiceInterface, logger *logrus.Logger) *EntityHandler {
	return &EntityHandler{
		entityService: entityService,
		logger:        logger,
	}
}

// GetEntity handles a single entity lookup by file number. A lookup always
// produces a terminal record; acquisition failures surface as a failed
// record with a 502 status rather than a bare error.
func (h *EntityHandler) GetEntity(c *gin.Context) {
	start := time.Now()
	requestID := c.GetString("request_id")

	fileNumber := utils.CleanFileNumber(c.Param("fileNumber"))
	if !utils.IsValidFileNumber(fileNumber) {
		h.logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"file_number": c.Param("fileNumber"),
		}).Warn("Invalid file number format")

		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "Invalid file number format",
			Message:   "File number must look like a Nevada business file number, e.g. E10281132020-8",
			Code:      "INVALID_FILE_NUMBER",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"file_number": fileNumber,
	}).Info("Processing entity lookup")

	record := h.entityService.GetEntity(c.Request.Context(), fileNumber, requestID)

	h.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"file_number": fileNumber,
		"success":     record.Metadata.Success,
		"duration":    time.Since(start),
	}).Info("Entity lookup completed")

	if !record.Metadata.Success {
		c.JSON(http.StatusBadGateway, record)
		return
	}

	c.JSON(http.StatusOK, record)
}
