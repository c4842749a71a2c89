package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"backendai-proxy-go/internal/client"
)

// VFolder manages virtual folders through the REST endpoints.
type VFolder struct {
	client *client.APIClient
}

// NewVFolder creates a VFolder wrapper.
func NewVFolder(c *client.APIClient) *VFolder {
	return &VFolder{client: c}
}

// Create creates a virtual folder on the given host. host and group may be
// empty to use the server-side defaults.
func (v *VFolder) Create(ctx context.Context, name, host, group string) (map[string]any, error) {
	payload := map[string]any{"name": name}
	if host != "" {
		payload["host"] = host
	}
	if group != "" {
		payload["group"] = group
	}
	var out map[string]any
	if err := v.client.FetchJSON(ctx, http.MethodPost, "/folders", nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the virtual folders of the current keypair, or of every
// keypair when listAll is set (admin privilege required).
func (v *VFolder) List(ctx context.Context, listAll bool) ([]any, error) {
	query := url.Values{}
	query.Set("all", strconv.FormatBool(listAll))
	var out []any
	if err := v.client.FetchJSON(ctx, http.MethodGet, "/folders", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListHosts returns the folder hosts available to the current keypair.
func (v *VFolder) ListHosts(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := v.client.FetchJSON(ctx, http.MethodGet, "/folders/_/hosts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Info returns the metadata of the named folder.
func (v *VFolder) Info(ctx context.Context, name string) (map[string]any, error) {
	var out map[string]any
	if err := v.client.FetchJSON(ctx, http.MethodGet, "/folders/"+name, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the named folder and all of its contents.
func (v *VFolder) Delete(ctx context.Context, name string) error {
	return v.client.FetchJSON(ctx, http.MethodDelete, "/folders/"+name, nil, nil, nil)
}

// Rename changes the name of a folder.
func (v *VFolder) Rename(ctx context.Context, name, newName string) error {
	return v.client.FetchJSON(ctx, http.MethodPost, "/folders/"+name+"/rename", nil,
		map[string]any{"new_name": newName}, nil)
}

// Mkdir creates a directory inside the named folder.
func (v *VFolder) Mkdir(ctx context.Context, name, path string) error {
	return v.client.FetchJSON(ctx, http.MethodPost, "/folders/"+name+"/mkdir", nil,
		map[string]any{"path": path}, nil)
}

// ListFiles lists the entries under path inside the named folder.
func (v *VFolder) ListFiles(ctx context.Context, name, path string) (map[string]any, error) {
	query := url.Values{}
	query.Set("path", path)
	var out map[string]any
	if err := v.client.FetchJSON(ctx, http.MethodGet, "/folders/"+name+"/files", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
