package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicegate/observability"
)

// Readiness returns a handler for K8s readiness probes.
func Readiness(check HealthFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := check(c.Request.Context())
		status, httpStatus := "ready", http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":    status,
			"service":   sh.Service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Liveness returns a handler for K8s liveness probes. It never consults
// providers; an unreachable backend is not a reason to restart the process.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName})
	}
}
