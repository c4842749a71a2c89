package api

import (
	"context"
	"net/http"

	"backendai-proxy-go/internal/client"
)

// Manager controls the upstream gateway/manager server.
type Manager struct {
	client *client.APIClient
}

// NewManager creates a Manager wrapper.
func NewManager(c *client.APIClient) *Manager {
	return &Manager{client: c}
}

// Status returns the current status of the configured API server.
func (m *Manager) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := m.client.FetchJSON(ctx, http.MethodGet, "/manager/status", nil,
		map[string]any{"status": "running"}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Freeze puts the API server into maintenance mode: clients can no longer
// create new sessions or mutate folders and keypairs. With forceKill set,
// running compute sessions are shut down immediately as well.
func (m *Manager) Freeze(ctx context.Context, forceKill bool) error {
	return m.client.FetchJSON(ctx, http.MethodPut, "/manager/status", nil,
		map[string]any{"status": "frozen", "force_kill": forceKill}, nil)
}

// Unfreeze resumes normal operation of the API server.
func (m *Manager) Unfreeze(ctx context.Context) error {
	return m.client.FetchJSON(ctx, http.MethodPut, "/manager/status", nil,
		map[string]any{"status": "running"}, nil)
}
