package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/troikatech/keycheck/pkg/metrics"
)

var metricsHandler = metrics.Handler()

func (h *Handler) GetMetrics(c *gin.Context) {
	metricsHandler.ServeHTTP(c.Writer, c.Request)
}
