// Package client provides the shared upstream session for the Backend.AI API:
// signed streaming HTTP requests and WebSocket connections over one
// connection pool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"backendai-proxy-go/internal/auth"
	"backendai-proxy-go/internal/config"
	"backendai-proxy-go/internal/metrics"
	"backendai-proxy-go/internal/model"
)

const userAgent = "backendai-proxy-go/1.0"

// APIClient is the shared upstream session. It is created once at startup,
// reused by every proxied request, and closed at shutdown. Its configuration
// is never mutated after construction, so concurrent use needs no locking
// beyond what net/http already provides.
type APIClient struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	signer     *auth.Signer
	endpoint   *url.URL
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates an APIClient with connection pooling and dial timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics.
func New(cfg *config.Config, signer *auth.Signer, logger *slog.Logger, m *metrics.Metrics) (*APIClient, error) {
	endpoint, err := url.Parse(cfg.Backend.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse backend.endpoint: %w", err)
	}

	connectTimeout := time.Duration(cfg.Upstream.ConnectTimeoutSeconds) * time.Second
	netDialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         netDialer.DialContext,
	}

	return &APIClient{
		// No overall client timeout: proxied responses may stream for an
		// arbitrarily long time. The dial timeout bounds connection setup
		// and request contexts bound everything else.
		httpClient: &http.Client{Transport: transport},
		dialer: &websocket.Dialer{
			NetDialContext:   netDialer.DialContext,
			HandshakeTimeout: connectTimeout,
		},
		signer:   signer,
		endpoint: endpoint,
		logger:   logger.With("component", "api_client"),
		metrics:  m,
	}, nil
}

// Close releases the pooled upstream connections.
func (c *APIClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// Endpoint returns the configured upstream base URL.
func (c *APIClient) Endpoint() string {
	return c.endpoint.String()
}

// FetchStream sends a signed request to the upstream API and returns the
// response as a stream. The caller must close the returned Body on every
// exit path. Responses with status >= 400 are drained into an *APIError so
// the caller can re-emit them verbatim.
//
// header is forwarded as-is after signing; in particular a caller-supplied
// Content-Type keeps its exact raw value (multipart boundaries intact) while
// only its canonical media type enters the signature. A caller-supplied
// Content-Length is forwarded unchanged so it matches what was signed.
func (c *APIClient) FetchStream(ctx context.Context, method, path string, query url.Values, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	u := *c.endpoint
	u.Path = path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if header != nil {
		req.Header = header.Clone()
	}
	req.Header.Set("User-Agent", userAgent)

	// net/http ignores the Content-Length header field; the struct field is
	// what goes on the wire. Mirror the declared value so the sent length is
	// exactly the one the client announced.
	if cl := req.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid Content-Length %q: %w", cl, err)
		}
		req.ContentLength = n
	}

	relURL := u.Path
	if u.RawQuery != "" {
		relURL += "?" + u.RawQuery
	}
	c.signer.Sign(req.Header, method, relURL, u.Host, canonicalContentType(req.Header.Get("Content-Type")))

	c.logger.Debug("upstream request", "method", method, "path", path)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	normMethod := metrics.NormalizeMethod(method)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(normMethod).Observe(duration)
	}

	if err != nil {
		return nil, classifyTransportError(err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(normMethod, strconv.Itoa(resp.StatusCode)).Inc()
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			errBody = nil
		}
		return nil, &APIError{
			Status:      resp.StatusCode,
			Reason:      reasonPhrase(resp),
			ContentType: resp.Header.Get("Content-Type"),
			Body:        errBody,
		}
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// FetchJSON sends a signed JSON request and decodes the JSON response into
// out. A nil payload sends an empty body; a nil out discards the response.
// Used by the typed API wrappers rather than the proxy data path.
func (c *APIClient) FetchJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	header := make(http.Header)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request payload: %w", err)
		}
		body = bytes.NewReader(data)
		header.Set("Content-Type", "application/json")
		header.Set("Content-Length", strconv.Itoa(len(data)))
	}

	resp, err := c.FetchStream(ctx, method, path, query, header, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// ConnectWebSocket opens a signed WebSocket connection to the upstream API.
// The caller owns the returned connection. A rejected handshake carrying an
// HTTP error response surfaces as an *APIError; transport failures surface
// as ErrUnreachable.
func (c *APIClient) ConnectWebSocket(ctx context.Context, path string, query url.Values) (*websocket.Conn, error) {
	u := *c.endpoint
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	u.RawQuery = query.Encode()

	relURL := u.Path
	if u.RawQuery != "" {
		relURL += "?" + u.RawQuery
	}
	header := make(http.Header)
	header.Set("User-Agent", userAgent)
	c.signer.Sign(header, http.MethodGet, relURL, u.Host, "")

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			defer func() { _ = resp.Body.Close() }()
			errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			return nil, &APIError{
				Status:      resp.StatusCode,
				Reason:      reasonPhrase(resp),
				ContentType: resp.Header.Get("Content-Type"),
				Body:        errBody,
			}
		}
		return nil, classifyTransportError(err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.logger.Debug("upstream websocket connected", "path", path)
	return conn, nil
}

// classifyTransportError separates caller cancellation from genuine
// network-level failures. Cancellation must stay recognizable via errors.Is
// so the handler can report 503 instead of 502.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("upstream request: %w", err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// reasonPhrase extracts the reason phrase from a response status line,
// falling back to the standard text for the code.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}

// canonicalContentType reduces a raw Content-Type value to the bare media
// type used in the signature canonical form.
func canonicalContentType(raw string) string {
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mediaType
}
