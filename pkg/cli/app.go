package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mchmarny/credpulse/pkg/config"
	"github.com/mchmarny/credpulse/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "credpulse"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

type appConfig struct {
	Config *config.Config
	Format string
	Debug  bool
}

func getConfig(cmd *cli.Command) *appConfig {
	if c, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok {
		return c
	}
	return &appConfig{Config: config.Default(), Format: formatJSON}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Synthetic student creditworthiness dataset generator and scoring service",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML config file (optional)",
				Sources: cli.EnvVars("CREDPULSE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to the .env file with CREDPULSE_* overrides",
				Value: config.EnvFileName,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*cli.Command{
			newGenerateCmd(),
			newRegistryCmd(),
			newPredictCmd(),
			newSummaryCmd(),
			newRunsCmd(),
			newServerCmd(),
			newConfigCmd(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := config.Load(cmd.String("config"), cmd.String("env-file"))
			if err != nil {
				return ctx, fmt.Errorf("loading config: %w", err)
			}

			debug := cmd.Bool("debug")
			level := cfg.Log.Level
			if debug {
				level = "debug"
			}
			logging.SetDefaultCLILogger(level)

			format := formatJSON
			switch f := cmd.String("format"); f {
			case formatJSON:
			case formatYAML, "yml":
				format = formatYAML
			default:
				return ctx, fmt.Errorf("unsupported output format: %s", f)
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Format: format,
				Debug:  debug,
			}
			return ctx, nil
		},
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func encode(cmd *cli.Command, v any) error {
	w := writer(cmd)
	if getConfig(cmd).Format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
