package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/openfleet/internal/config"
	"github.com/openfleet/internal/workspace"
)

// InitCommand returns the init command
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Seed the .openfleet workspace directory",
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ws, err := workspace.Resolve(cfg.Workspace.Dir)
			if err != nil {
				return err
			}
			if err := ws.Init(); err != nil {
				return fmt.Errorf("failed to initialize workspace: %w", err)
			}
			fmt.Printf("Workspace ready at %s\n", ws.Root)
			return nil
		},
	}
}
