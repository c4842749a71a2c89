// Package service implements the upstream request adapter: it turns inbound
// proxy requests into signed upstream calls.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"github.com/gorilla/websocket"

	"backendai-proxy-go/internal/client"
	"backendai-proxy-go/internal/model"
)

// versionPrefix matches a leading API version segment such as /v6/ or v12/.
var versionPrefix = regexp.MustCompile(`^/?v(\d+)/`)

// forwardableRequestHeaders are the only inbound headers passed through
// verbatim. Content-Type keeps multipart boundary strings intact and
// Content-Length must match the signed/sent body exactly; everything else
// is regenerated by the signing step.
var forwardableRequestHeaders = []string{
	"Content-Type",
	"Content-Length",
}

// Forwarder builds and sends upstream requests on behalf of proxied callers.
type Forwarder struct {
	client *client.APIClient
	logger *slog.Logger
}

// NewForwarder creates a Forwarder.
func NewForwarder(c *client.APIClient, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		client: c,
		logger: logger.With("component", "forwarder"),
	}
}

// Forward sends a ProxyRequest to the upstream API as a streaming request
// and returns the streaming response. The caller is responsible for closing
// the response body on every exit path.
func (f *Forwarder) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	path := StripVersionPrefix(pr.Path)
	header := selectRequestHeaders(pr.Header)

	f.logger.Debug("forwarding request", "method", pr.Method, "path", path)

	return f.client.FetchStream(pr.Ctx, pr.Method, path, pr.Query, header, pr.Body)
}

// ConnectUpstream opens the upstream WebSocket leg for a bridge session.
func (f *Forwarder) ConnectUpstream(ctx context.Context, path string, query url.Values) (*websocket.Conn, error) {
	stripped := StripVersionPrefix(path)

	f.logger.Debug("connecting upstream websocket", "path", stripped)

	return f.client.ConnectWebSocket(ctx, stripped, query)
}

// StripVersionPrefix removes a leading /v<digits>/ segment from a request
// path, so /v6/folders becomes /folders. Paths without a version prefix are
// returned unchanged.
func StripVersionPrefix(path string) string {
	return versionPrefix.ReplaceAllString(path, "/")
}

func selectRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for _, key := range forwardableRequestHeaders {
		if vals := src.Values(key); len(vals) > 0 {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	return dst
}
