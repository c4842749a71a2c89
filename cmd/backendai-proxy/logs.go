package main

import (
	"context"
	"fmt"

	"backendai-proxy-go/internal/api"
)

// LogsCmd shows the output logs of a running container.
type LogsCmd struct {
	SessionID string `kong:"arg,required,help='The session ID or its alias given when creating the session.'"`
}

// Run fetches and prints the container logs.
func (cmd *LogsCmd) Run(cli *CLI) error {
	c, _, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	logs, err := api.NewComputeSession(c).GetLogs(context.Background(), cmd.SessionID)
	if err != nil {
		return fmt.Errorf("retrieve logs for %s: %w", cmd.SessionID, err)
	}
	fmt.Print(logs)
	return nil
}
