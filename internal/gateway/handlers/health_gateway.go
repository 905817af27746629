package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"warehouse-system/internal/health"
)

type HealthHTTPHandler struct {
	checker *health.Checker
}

func NewHealthHTTPHandler(checker *health.Checker) *HealthHTTPHandler {
	return &HealthHTTPHandler{
		checker: checker,
	}
}

// Health is a liveness check.
func (h *HealthHTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    health.StatusHealthy,
		"message":   "Server is running",
		"timestamp": time.Now(),
	})
}

func (h *HealthHTTPHandler) Detailed(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
