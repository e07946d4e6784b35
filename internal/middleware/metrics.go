package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minifeed_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// ActiveWebSockets is the number of open websocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minifeed_active_websockets",
		Help: "Number of currently open websocket connections",
	})

	promOnce     sync.Once
	promInstance *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide Fiber Prometheus middleware. The collectors are
// registered on the default registry, so repeated calls return the same instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promInstance = fiberprometheus.New(serviceName)
	})
	return promInstance
}

// MetricsMiddleware records per-route request metrics.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
