package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"backendai-proxy-go/internal/client"
	"backendai-proxy-go/internal/metrics"
	"backendai-proxy-go/internal/model"
	"backendai-proxy-go/internal/relay"
	"backendai-proxy-go/internal/service"
)

// Fixed caller-visible messages for the error conditions the proxy itself
// reports. Upstream API errors are passed through verbatim instead.
const (
	msgUnreachable  = "The proxy target server is inaccessible."
	msgShuttingDown = "The proxy is being shut down."
	msgInternal     = "Something has gone wrong."
)

// ProxyHandler forwards API requests to the upstream server, relaying
// responses as byte-transparent streams.
type ProxyHandler struct {
	forwarder *service.Forwarder
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter is optional;
// pass nil to disable WebSocket session metrics.
func NewProxyHandler(f *service.Forwarder, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		forwarder: f,
		logger:    logger.With("component", "proxy_handler"),
		metrics:   m,
	}
}

// Handle proxies an HTTP request upstream and streams the response back.
// All requests and responses are treated as streams so the proxy stays
// transparent to arbitrary payloads.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: req.Header,
		Body:   req.Body,
	}

	resp, err := h.forwarder.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Once the status line is committed a mid-stream failure can only
	// truncate the response, never change the status. Log and let the
	// deferred close release the upstream handle.
	if err := relay.Stream(c.Response(), resp); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// mapError is the sole translation point from internal error conditions to
// caller-visible status codes.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		contentType := apiErr.ContentType
		if contentType == "" {
			contentType = echo.MIMETextPlain
		}
		return c.Blob(apiErr.Status, contentType, apiErr.Body)
	}

	if errors.Is(err, context.Canceled) {
		return c.String(http.StatusServiceUnavailable, msgShuttingDown)
	}

	if errors.Is(err, client.ErrUnreachable) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Error("upstream unreachable",
			"err", err,
			"path", c.Request().URL.Path,
		)
		return c.String(http.StatusBadGateway, msgUnreachable)
	}

	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)
	return c.String(http.StatusInternalServerError, msgInternal)
}
