package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tableconfig-editor/internal/middleware"
	"tableconfig-editor/internal/repository"
	"tableconfig-editor/pkg/response"
)

// HealthController reports service and storage health
type HealthController struct {
	repo    repository.TableConfigRepository
	backend string
	started time.Time
}

// NewHealthController creates a new HealthController
func NewHealthController(repo repository.TableConfigRepository, backend string) *HealthController {
	return &HealthController{
		repo:    repo,
		backend: backend,
		started: time.Now(),
	}
}

// Health handles GET /health. The storage check pings the configuration
// table's backend so a dead warehouse shows up before a save fails.
func (hc *HealthController) Health(c *gin.Context) {
	status := "healthy"
	storage := "up"
	httpStatus := http.StatusOK

	if err := hc.repo.Ping(c.Request.Context()); err != nil {
		status = "degraded"
		storage = "down"
		httpStatus = http.StatusServiceUnavailable
	}
	middleware.UpdateStorageHealth(hc.backend, storage == "up")

	c.JSON(httpStatus, response.SuccessResponse(gin.H{
		"status":  status,
		"backend": hc.backend,
		"storage": storage,
		"uptime":  time.Since(hc.started).String(),
	}, hc.getCorrelationID(c)))
}

func (hc *HealthController) getCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get(middleware.CorrelationIDKey); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}
