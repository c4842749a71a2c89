package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"backendai-proxy-go/internal/client"
)

// defaultSessionFields are the columns shown by the session listing CLI.
var defaultSessionFields = []string{
	"sess_id", "lang", "status", "created_at", "terminated_at", "occupied_slots",
}

// ComputeSession queries running compute sessions and their logs.
type ComputeSession struct {
	client *client.APIClient
	admin  *Admin
}

// NewComputeSession creates a ComputeSession wrapper.
func NewComputeSession(c *client.APIClient) *ComputeSession {
	return &ComputeSession{client: c, admin: NewAdmin(c)}
}

// List returns compute sessions filtered by status (for example "RUNNING").
// An empty status lists all sessions of the current keypair.
func (s *ComputeSession) List(ctx context.Context, status string, fields []string) ([]any, error) {
	if len(fields) == 0 {
		fields = defaultSessionFields
	}
	q := fmt.Sprintf(`query($status: String) {
  compute_sessions(status: $status) { %s }
}`, strings.Join(fields, " "))
	variables := map[string]any{}
	if status != "" {
		variables["status"] = status
	}
	resp, err := s.admin.Query(ctx, q, variables)
	if err != nil {
		return nil, err
	}
	data, ok := resp["compute_sessions"].([]any)
	if !ok {
		return nil, fmt.Errorf("session list: unexpected response shape: %v", resp)
	}
	return data, nil
}

// GetLogs returns the container output logs of the given session.
func (s *ComputeSession) GetLogs(ctx context.Context, sessionID string) (string, error) {
	var out struct {
		Result struct {
			Logs string `json:"logs"`
		} `json:"result"`
	}
	err := s.client.FetchJSON(ctx, http.MethodGet, "/session/"+sessionID+"/logs", nil, nil, &out)
	if err != nil {
		return "", err
	}
	return out.Result.Logs, nil
}
