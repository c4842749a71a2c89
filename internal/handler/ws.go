package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"backendai-proxy-go/internal/bridge"
)

// upgrader accepts the downstream half of a bridge session. Origins are not
// checked; the proxy serves local development callers and already forces a
// wildcard CORS policy on the HTTP side.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// HandleWebSocket bridges a downstream WebSocket session to the upstream
// API. The upstream leg is connected first so a rejected or unreachable
// upstream can still be reported as a plain HTTP error before the downstream
// upgrade commits the connection.
func (h *ProxyHandler) HandleWebSocket(c echo.Context) error {
	req := c.Request()

	upConn, err := h.forwarder.ConnectUpstream(req.Context(), req.URL.Path, req.URL.Query())
	if err != nil {
		return h.mapError(c, err)
	}

	downConn, err := upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		_ = upConn.Close()
		// Upgrade has already written its own error response.
		h.logger.Error("downstream upgrade failed", "err", err)
		return nil
	}

	if h.metrics != nil {
		h.metrics.WSSessionsActive.Inc()
		defer h.metrics.WSSessionsActive.Dec()
	}

	b := bridge.New(downConn, upConn, h.logger, h.metrics)
	b.Run(req.Context())

	// The connection was hijacked during the upgrade; there is nothing left
	// to write.
	return nil
}
