package endpoint

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics serves the default Prometheus registry, which the OpenTelemetry
// prometheus exporter feeds.
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
