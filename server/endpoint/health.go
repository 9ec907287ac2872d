package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicegate/observability"
)

// HealthFunc aggregates the health of the service's components.
type HealthFunc func(ctx context.Context) *observability.ServiceHealth

// Health returns a handler that reports service health including component
// statuses. Only a down component turns the response into a 503; a degraded
// provider chain still serves.
func Health(check HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := check(c.Request.Context())
		httpStatus := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"components": sh.Components,
		})
	}
}
