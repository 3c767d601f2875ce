package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/silverstate/nvsos-api/internal/services"
	"github.com/sirupsen/logrus"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	services  *services.Container
	logger    *logrus.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(services *services.Container, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		services:  services,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetHealth reports the aggregate health of the API and its dependencies.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	servicesHealth := h.services.Health()

	status := "healthy"
	for _, serviceHealth := range servicesHealth {
		if healthMap, ok := serviceHealth.(map[string]interface{}); ok {
			if serviceStatus, exists := healthMap["status"]; exists && serviceStatus == "unhealthy" {
				status = "unhealthy"
				break
			}
		}
	}

	response := models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    time.Since(h.startTime).String(),
		Services:  make(map[string]models.ServiceInfo),
	}

	for serviceName, serviceHealth := range servicesHealth {
		if healthMap, ok := serviceHealth.(map[string]interface{}); ok {
			info := models.ServiceInfo{LastCheck: time.Now()}
			if serviceStatus, exists := healthMap["status"]; exists {
				info.Status, _ = serviceStatus.(string)
			}
			if errorMsg, exists := healthMap["error"]; exists {
				info.Error, _ = errorMsg.(string)
			}
			response.Services[serviceName] = info
		}
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, response)
}

// GetReadiness reports whether the service can accept lookups. The browser
// pool is the only hard dependency; the cache degrades to memory on its own.
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	servicesHealth := h.services.Health()

	ready := true
	issues := make([]string, 0)

	if browserHealth, exists := servicesHealth["browser"]; exists {
		if healthMap, ok := browserHealth.(map[string]interface{}); ok {
			if status, exists := healthMap["status"]; exists && status == "unhealthy" {
				ready = false
				issues = append(issues, "browser pool is unhealthy")
			}
		}
	}

	response := gin.H{
		"ready":     ready,
		"timestamp": time.Now(),
	}
	if len(issues) > 0 {
		response["issues"] = issues
	}

	httpStatus := http.StatusOK
	if !ready {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, response)
}

// GetLiveness reports that the process is running.
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"alive":      true,
		"timestamp":  time.Now(),
		"uptime":     time.Since(h.startTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": mem.HeapAlloc,
	})
}
