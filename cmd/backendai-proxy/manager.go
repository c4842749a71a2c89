package main

import (
	"context"
	"fmt"

	"backendai-proxy-go/internal/api"
)

// ManagerCmd groups manager server control subcommands.
type ManagerCmd struct {
	Status   ManagerStatusCmd   `kong:"cmd,help='Show the current status of the API server.'"`
	Freeze   ManagerFreezeCmd   `kong:"cmd,help='Freeze the API server for maintenance.'"`
	Unfreeze ManagerUnfreezeCmd `kong:"cmd,help='Resume normal operation of the API server.'"`
}

// ManagerStatusCmd shows the manager status.
type ManagerStatusCmd struct{}

// Run prints the manager status as a field/value table.
func (cmd *ManagerStatusCmd) Run(cli *CLI) error {
	c, _, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	status, err := api.NewManager(c).Status(context.Background())
	if err != nil {
		return fmt.Errorf("query manager status: %w", err)
	}

	rows := make([][]string, 0, len(status))
	for key, value := range status {
		rows = append(rows, []string{key, cell(value)})
	}
	printTable([]string{"Field", "Value"}, rows)
	return nil
}

// ManagerFreezeCmd puts the manager into maintenance mode.
type ManagerFreezeCmd struct {
	ForceKill bool `kong:"help='Shut down all running compute sessions immediately.'"`
}

// Run freezes the manager.
func (cmd *ManagerFreezeCmd) Run(cli *CLI) error {
	c, _, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := api.NewManager(c).Freeze(context.Background(), cmd.ForceKill); err != nil {
		return fmt.Errorf("freeze manager: %w", err)
	}
	fmt.Println("Manager is now frozen.")
	return nil
}

// ManagerUnfreezeCmd resumes normal operation.
type ManagerUnfreezeCmd struct{}

// Run unfreezes the manager.
func (cmd *ManagerUnfreezeCmd) Run(cli *CLI) error {
	c, _, err := newAPIClient(cli)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := api.NewManager(c).Unfreeze(context.Background()); err != nil {
		return fmt.Errorf("unfreeze manager: %w", err)
	}
	fmt.Println("Manager is now running.")
	return nil
}
