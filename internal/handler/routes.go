package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// WebSocket bridge paths are matched first; everything else, any method,
// falls through to the streaming relay.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	e.GET("/stream/*", proxy.HandleWebSocket)
	e.GET("/wsproxy/*", proxy.HandleWebSocket)

	e.Any("/*", proxy.Handle)
}
