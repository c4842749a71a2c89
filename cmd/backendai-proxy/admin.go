package main

import (
	"context"
	"fmt"

	"backendai-proxy-go/internal/api"
)

// AdminCmd groups administrative subcommands.
type AdminCmd struct {
	Keypair  KeypairInfoCmd `kong:"cmd,help='Show the server-side information of the currently configured access key.'"`
	Keypairs KeypairsCmd    `kong:"cmd,help='List keypairs. To show other users keypairs your access key must have the admin privilege.'"`
}

var keypairFields = []struct {
	title string
	key   string
}{
	{"User ID", "user_id"},
	{"Access Key", "access_key"},
	{"Secret Key", "secret_key"},
	{"Active?", "is_active"},
	{"Admin?", "is_admin"},
	{"Created At", "created_at"},
	{"Last Used", "last_used"},
	{"Res.Policy", "resource_policy"},
	{"Rate Limit", "rate_limit"},
}

func keypairFieldKeys() []string {
	keys := make([]string, len(keypairFields))
	for i, f := range keypairFields {
		keys[i] = f.key
	}
	return keys
}

// KeypairInfoCmd shows the keypair of the configured access key.
type KeypairInfoCmd struct{}

// Run prints the current keypair as a field/value table.
func (cmd *KeypairInfoCmd) Run(cli *CLI) error {
	c, cfg, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	info, err := api.NewKeyPair(c).Info(context.Background(), cfg.Backend.AccessKey, keypairFieldKeys())
	if err != nil {
		return fmt.Errorf("query keypair: %w", err)
	}

	rows := make([][]string, 0, len(keypairFields))
	for _, f := range keypairFields {
		rows = append(rows, []string{f.title, cell(info[f.key])})
	}
	printTable([]string{"Field", "Value"}, rows)
	return nil
}

// KeypairsCmd lists keypairs, optionally filtered by user and activation.
type KeypairsCmd struct {
	UserID     string `kong:"short='u',help='Show keypairs of this given user. Shows all by default.'"`
	ActiveOnly bool   `kong:"help='Show only active keypairs.'"`
}

// Run prints the keypair listing as a table.
func (cmd *KeypairsCmd) Run(cli *CLI) error {
	c, _, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	var isActive *bool
	if cmd.ActiveOnly {
		active := true
		isActive = &active
	}

	keypairs, err := api.NewKeyPair(c).List(context.Background(), cmd.UserID, isActive, keypairFieldKeys())
	if err != nil {
		return fmt.Errorf("list keypairs: %w", err)
	}

	headers := make([]string, len(keypairFields))
	for i, f := range keypairFields {
		headers[i] = f.title
	}
	rows := make([][]string, 0, len(keypairs))
	for _, kp := range keypairs {
		m, ok := kp.(map[string]any)
		if !ok {
			continue
		}
		row := make([]string, len(keypairFields))
		for i, f := range keypairFields {
			row[i] = cell(m[f.key])
		}
		rows = append(rows, row)
	}
	printTable(headers, rows)
	return nil
}
