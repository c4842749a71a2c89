package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"backendai-proxy-go/internal/config"
)

// startProxyServer runs the full route table against the given upstream and
// returns the proxy's base URL.
func startProxyServer(t *testing.T, upstreamURL string) string {
	t.Helper()
	h := newTestHandler(t, upstreamURL)
	cfg := &config.Config{
		Backend: config.BackendConfig{
			Endpoint:   upstreamURL,
			APIVersion: "v6.20220615",
		},
	}

	e := echo.New()
	RegisterRoutes(e, h, NewHealthHandler(cfg, Version("test")))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestHandleWebSocket_BidirectionalRelay(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	var gotPath, gotApp, gotAuthz string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotApp = r.URL.Query().Get("app")
		gotAuthz = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		// Greet, then echo everything back with a prefix.
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ready"))
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, append([]byte("echo:"), data...)); err != nil {
				return
			}
		}
	}))
	defer upstream.Close()

	proxyURL := startProxyServer(t, upstream.URL)
	wsURL := "ws" + strings.TrimPrefix(proxyURL, "http") + "/stream/pty?app=jupyter"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if string(data) != "ready" {
		t.Errorf("greeting = %q, want %q", data, "ready")
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Errorf("echo kind = %d, want binary", kind)
	}
	if !bytes.Equal(data, append([]byte("echo:"), 0x01, 0x02)) {
		t.Errorf("echo payload = %q", data)
	}

	if gotPath != "/stream/pty" {
		t.Errorf("upstream path = %q, want %q", gotPath, "/stream/pty")
	}
	if gotApp != "jupyter" {
		t.Errorf("app query = %q, want %q", gotApp, "jupyter")
	}
	if gotAuthz == "" {
		t.Error("upstream handshake was not signed")
	}
}

func TestHandleWebSocket_UpstreamRejectionIsPlainHTTP(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"msg":"forbidden"}`))
	}))
	defer upstream.Close()

	proxyURL := startProxyServer(t, upstream.URL)
	wsURL := "ws" + strings.TrimPrefix(proxyURL, "http") + "/stream/pty"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial succeeded, want handshake rejection")
	}
	if resp == nil {
		t.Fatal("no HTTP response accompanying the failed handshake")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"msg":"forbidden"}` {
		t.Errorf("body = %q, want upstream error payload", body)
	}
}

func TestHandleWebSocket_UnreachableUpstream(t *testing.T) {
	proxyURL := startProxyServer(t, "http://127.0.0.1:1")
	wsURL := "ws" + strings.TrimPrefix(proxyURL, "http") + "/wsproxy/session1"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial succeeded, want handshake rejection")
	}
	if resp == nil {
		t.Fatal("no HTTP response accompanying the failed handshake")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadGateway)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != msgUnreachable {
		t.Errorf("body = %q, want %q", body, msgUnreachable)
	}
}

func TestHealthEndpoints(t *testing.T) {
	proxyURL := startProxyServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(proxyURL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp2, err := http.Get(proxyURL + "/proxy/status")
	if err != nil {
		t.Fatalf("GET /proxy/status: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var status map[string]string
	if err := json.NewDecoder(resp2.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["status"] != "ok" {
		t.Errorf(`status["status"] = %q, want "ok"`, status["status"])
	}
	if status["api_version"] != "v6.20220615" {
		t.Errorf(`status["api_version"] = %q, want "v6.20220615"`, status["api_version"])
	}
}
