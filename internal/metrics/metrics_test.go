package metrics

import "testing"

func TestNormalizeMethod(t *testing.T) {
	cases := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"DELETE", "DELETE"},
		{"PROPFIND", "other"},
		{"get", "other"},
		{"", "other"},
	}
	for _, tc := range cases {
		if got := NormalizeMethod(tc.method); got != tc.want {
			t.Errorf("NormalizeMethod(%q) = %q, want %q", tc.method, got, tc.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/stream/pty", "/stream"},
		{"/stream", "/stream"},
		{"/wsproxy/session1/app", "/wsproxy"},
		{"/healthz", "/healthz"},
		{"/proxy/status", "/proxy/status"},
		{"/metrics", "/metrics"},
		{"/v6/folders", "relay"},
		{"/admin/graphql", "relay"},
		{"/streaming", "relay"},
		{"/", "relay"},
	}
	for _, tc := range cases {
		if got := NormalizePath(tc.path); got != tc.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()

	m.RequestsTotal.WithLabelValues("GET", "200", "relay").Inc()
	m.WSFramesRelayed.WithLabelValues("upstream").Add(3)
	m.WSSessionsActive.Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"backendai_proxy_http_requests_total",
		"backendai_proxy_ws_frames_relayed_total",
		"backendai_proxy_ws_sessions_active",
	} {
		if !found[name] {
			t.Errorf("metric family %q not gathered", name)
		}
	}
}
