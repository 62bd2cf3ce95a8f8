package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthCheck never calls the remote API; probing costs money and is an
// explicit operator action.
func (h *Handler) HealthCheck(c *gin.Context) {
	services := map[string]string{
		"api":        "healthy",
		"credential": "missing",
	}

	if _, err := h.loader.Load(); err == nil {
		services["credential"] = "present"
	}

	overallStatus := "healthy"
	if services["credential"] != "present" {
		overallStatus = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().Format(time.RFC3339),
		Services:  services,
	})
}
