package api

import (
	"context"
	"fmt"
	"strings"

	"backendai-proxy-go/internal/client"
)

// defaultKeyPairFields are returned when the caller does not ask for a
// specific field set.
var defaultKeyPairFields = []string{"access_key", "secret_key"}

// KeyPairOptions holds the mutable properties of a keypair.
type KeyPairOptions struct {
	IsActive       bool
	IsAdmin        bool
	ResourcePolicy string
	RateLimit      int
}

// KeyPair manages API keypairs through the admin GraphQL endpoint.
// Most operations require an admin-privileged access key.
type KeyPair struct {
	admin *Admin
}

// NewKeyPair creates a KeyPair wrapper.
func NewKeyPair(c *client.APIClient) *KeyPair {
	return &KeyPair{admin: NewAdmin(c)}
}

// Create creates a new keypair for the given user.
func (k *KeyPair) Create(ctx context.Context, userID string, opts KeyPairOptions, fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		fields = defaultKeyPairFields
	}
	q := fmt.Sprintf(`mutation($user_id: String!, $input: KeyPairInput!) {
  create_keypair(user_id: $user_id, props: $input) {
    ok msg keypair { %s }
  }
}`, strings.Join(fields, " "))
	resp, err := k.admin.Query(ctx, q, map[string]any{
		"user_id": userID,
		"input": map[string]any{
			"is_active":       opts.IsActive,
			"is_admin":        opts.IsAdmin,
			"resource_policy": opts.ResourcePolicy,
			"rate_limit":      opts.RateLimit,
		},
	})
	if err != nil {
		return nil, err
	}
	return resultField(resp, "create_keypair")
}

// Update modifies the properties of an existing keypair.
func (k *KeyPair) Update(ctx context.Context, accessKey string, opts KeyPairOptions) (map[string]any, error) {
	q := `mutation($access_key: String!, $input: ModifyKeyPairInput!) {
  modify_keypair(access_key: $access_key, props: $input) {
    ok msg
  }
}`
	resp, err := k.admin.Query(ctx, q, map[string]any{
		"access_key": accessKey,
		"input": map[string]any{
			"is_active":       opts.IsActive,
			"is_admin":        opts.IsAdmin,
			"resource_policy": opts.ResourcePolicy,
			"rate_limit":      opts.RateLimit,
		},
	})
	if err != nil {
		return nil, err
	}
	return resultField(resp, "modify_keypair")
}

// Delete removes an existing keypair.
func (k *KeyPair) Delete(ctx context.Context, accessKey string) (map[string]any, error) {
	q := `mutation($access_key: String!) {
  delete_keypair(access_key: $access_key) {
    ok msg
  }
}`
	resp, err := k.admin.Query(ctx, q, map[string]any{
		"access_key": accessKey,
	})
	if err != nil {
		return nil, err
	}
	return resultField(resp, "delete_keypair")
}

// Activate re-enables a deactivated keypair.
func (k *KeyPair) Activate(ctx context.Context, accessKey string) (map[string]any, error) {
	return k.setActive(ctx, accessKey, true)
}

// Deactivate disables a keypair without deleting it; requests signed with it
// are rejected until it is activated again.
func (k *KeyPair) Deactivate(ctx context.Context, accessKey string) (map[string]any, error) {
	return k.setActive(ctx, accessKey, false)
}

func (k *KeyPair) setActive(ctx context.Context, accessKey string, active bool) (map[string]any, error) {
	q := `mutation($access_key: String!, $input: ModifyKeyPairInput!) {
  modify_keypair(access_key: $access_key, props: $input) {
    ok msg
  }
}`
	resp, err := k.admin.Query(ctx, q, map[string]any{
		"access_key": accessKey,
		"input":      map[string]any{"is_active": active},
	})
	if err != nil {
		return nil, err
	}
	return resultField(resp, "modify_keypair")
}

// List returns the keypairs of the given user, or all keypairs when userID
// is empty. isActive filters by activation state when non-nil.
func (k *KeyPair) List(ctx context.Context, userID string, isActive *bool, fields []string) ([]any, error) {
	if len(fields) == 0 {
		fields = defaultKeyPairFields
	}
	q := fmt.Sprintf(`query($user_id: String, $is_active: Boolean) {
  keypairs(user_id: $user_id, is_active: $is_active) { %s }
}`, strings.Join(fields, " "))
	variables := map[string]any{}
	if userID != "" {
		variables["user_id"] = userID
	}
	if isActive != nil {
		variables["is_active"] = *isActive
	}
	resp, err := k.admin.Query(ctx, q, variables)
	if err != nil {
		return nil, err
	}
	data, ok := resp["keypairs"].([]any)
	if !ok {
		return nil, fmt.Errorf("keypair list: unexpected response shape: %v", resp)
	}
	return data, nil
}

// Info returns the server-side information of the given access key.
func (k *KeyPair) Info(ctx context.Context, accessKey string, fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		fields = defaultKeyPairFields
	}
	q := fmt.Sprintf(`query($access_key: String!) {
  keypair(access_key: $access_key) { %s }
}`, strings.Join(fields, " "))
	resp, err := k.admin.Query(ctx, q, map[string]any{
		"access_key": accessKey,
	})
	if err != nil {
		return nil, err
	}
	return resultField(resp, "keypair")
}

// resultField extracts a named object from a GraphQL response.
func resultField(resp map[string]any, name string) (map[string]any, error) {
	data, ok := resp[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected response shape: %v", name, resp)
	}
	return data, nil
}
