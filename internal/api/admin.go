// Package api provides typed wrappers over the upstream API endpoints.
// Each wrapper holds an explicit reference to the shared APIClient instead
// of being bound to a session at construction time by reflection tricks.
package api

import (
	"context"
	"net/http"

	"backendai-proxy-go/internal/client"
)

// graphQLRequest is the request envelope for the admin GraphQL endpoint.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Admin makes raw GraphQL queries against the admin endpoint. Depending on
// the privilege of the configured access key, queries over other users'
// resources may be rejected by the server.
type Admin struct {
	client *client.APIClient
}

// NewAdmin creates an Admin wrapper.
func NewAdmin(c *client.APIClient) *Admin {
	return &Admin{client: c}
}

// Query sends a GraphQL query or mutation and returns the decoded response.
func (a *Admin) Query(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	if variables == nil {
		variables = map[string]any{}
	}
	var out map[string]any
	err := a.client.FetchJSON(ctx, http.MethodPost, "/admin/graphql", nil,
		graphQLRequest{Query: query, Variables: variables}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
