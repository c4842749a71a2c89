package main

import (
	"context"
	"fmt"

	"backendai-proxy-go/internal/api"
)

// PsCmd lists the current running compute sessions for the current keypair.
type PsCmd struct {
	IDOnly bool `kong:"name='id-only',help='Display session ids only.'"`
}

// Run lists the running sessions in a table.
func (cmd *PsCmd) Run(cli *CLI) error {
	c, _, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	sessions, err := api.NewComputeSession(c).List(context.Background(), "RUNNING", nil)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if cmd.IDOnly {
		for _, s := range sessions {
			if m, ok := s.(map[string]any); ok {
				fmt.Println(cell(m["sess_id"]))
			}
		}
		return nil
	}

	headers := []string{"Session ID", "Image", "Status", "Created At", "Terminated At", "Occupied Slots"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		m, ok := s.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			cell(m["sess_id"]),
			cell(m["lang"]),
			cell(m["status"]),
			cell(m["created_at"]),
			cell(m["terminated_at"]),
			cell(m["occupied_slots"]),
		})
	}
	printTable(headers, rows)
	return nil
}
