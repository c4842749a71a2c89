package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"backendai-proxy-go/internal/auth"
	"backendai-proxy-go/internal/config"
)

func newTestClient(t *testing.T, endpoint string) *APIClient {
	t.Helper()
	cfg := &config.Config{
		Backend: config.BackendConfig{
			Endpoint:   endpoint,
			APIVersion: "v6.20220615",
			AccessKey:  "AKIATEST",
			SecretKey:  "secret",
		},
		Upstream: config.UpstreamConfig{ConnectTimeoutSeconds: 5, IdleConnections: 5},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := New(cfg, auth.NewSigner(cfg), logger, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestFetchStream_Success(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("request was not signed")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	resp, err := c.FetchStream(context.Background(), http.MethodGet, "/foo", nil, nil, nil)
	if err != nil {
		t.Fatalf("FetchStream() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.Reason != "OK" {
		t.Errorf("reason = %q, want %q", resp.Reason, "OK")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `{"result":"ok"}` {
		t.Errorf("body = %q, want %q", body, `{"result":"ok"}`)
	}
}

func TestFetchStream_APIError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"msg":"no such resource"}`))
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	_, err := c.FetchStream(context.Background(), http.MethodGet, "/missing", nil, nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusNotFound)
	}
	if apiErr.Reason != "Not Found" {
		t.Errorf("Reason = %q, want %q", apiErr.Reason, "Not Found")
	}
	if string(apiErr.Body) != `{"msg":"no such resource"}` {
		t.Errorf("Body = %q, want error payload preserved", apiErr.Body)
	}
}

func TestFetchStream_Unreachable(t *testing.T) {
	// A closed port: connection refused.
	c := newTestClient(t, "http://127.0.0.1:1")

	for i := 0; i < 2; i++ {
		_, err := c.FetchStream(context.Background(), http.MethodGet, "/foo", nil, nil, nil)
		if !errors.Is(err, ErrUnreachable) {
			t.Fatalf("attempt %d: error = %v, want ErrUnreachable", i, err)
		}
	}
}

func TestFetchStream_Cancelled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchStream(ctx, http.MethodGet, "/foo", nil, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrUnreachable) {
		t.Error("cancellation must not be reported as unreachable")
	}
}

func TestFetchStream_QueryAndBody(t *testing.T) {
	var gotQuery, gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("app")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	query := url.Values{"app": []string{"jupyter"}}
	resp, err := c.FetchStream(context.Background(), http.MethodPost, "/stream/pty", query, nil,
		strings.NewReader("input-data"))
	if err != nil {
		t.Fatalf("FetchStream() error = %v", err)
	}
	_ = resp.Body.Close()

	if gotQuery != "jupyter" {
		t.Errorf("app query = %q, want %q", gotQuery, "jupyter")
	}
	if gotBody != "input-data" {
		t.Errorf("body = %q, want %q", gotBody, "input-data")
	}
}

func TestFetchJSON_RoundTrip(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte(`"status":"running"`)) {
			t.Errorf("body = %s, want status field", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"running","active_sessions":3}`))
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	var out map[string]any
	err := c.FetchJSON(context.Background(), http.MethodGet, "/manager/status", nil,
		map[string]any{"status": "running"}, &out)
	if err != nil {
		t.Fatalf("FetchJSON() error = %v", err)
	}
	if out["status"] != "running" {
		t.Errorf(`out["status"] = %v, want "running"`, out["status"])
	}
}

func TestConnectWebSocket_Success(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			t.Error("websocket handshake was not signed")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(kind, data)
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	conn, err := c.ConnectWebSocket(context.Background(), "/stream/pty", nil)
	if err != nil {
		t.Fatalf("ConnectWebSocket() error = %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("echo")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if string(data) != "echo" {
		t.Errorf("echo = %q, want %q", data, "echo")
	}
}

func TestConnectWebSocket_RejectedHandshake(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"msg":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer upstream.Close()

	c := newTestClient(t, upstream.URL)

	_, err := c.ConnectWebSocket(context.Background(), "/stream/pty", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusUnauthorized)
	}
}

func TestConnectWebSocket_Unreachable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	_, err := c.ConnectWebSocket(context.Background(), "/stream/pty", nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("error = %v, want ErrUnreachable", err)
	}
}
