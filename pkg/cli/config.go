package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mchmarny/credpulse/pkg/config"
	"github.com/urfave/cli/v3"
)

func newConfigCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage credpulse configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: cmdConfigShow,
			},
			{
				Name:   "init",
				Usage:  "Write the default config file unless one exists",
				Action: cmdConfigInit,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "Config directory (default: ~/.credpulse)"},
				},
			},
		},
	}
}

func cmdConfigShow(_ context.Context, cmd *cli.Command) error {
	return encode(cmd, getConfig(cmd).Config)
}

func cmdConfigInit(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if dir == "" {
		d, _, err := config.GetOrCreateHomeDir(appName)
		if err != nil {
			return err
		}
		dir = d
	}

	c, err := config.ReadOrCreate(dir)
	if err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return encode(cmd, map[string]any{
		"path":   filepath.Join(dir, config.ConfigFileName),
		"config": c,
	})
}
