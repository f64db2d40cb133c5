package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mchmarny/credpulse/pkg/bundle"
	"github.com/mchmarny/credpulse/pkg/data"
	"github.com/mchmarny/credpulse/pkg/generate"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/urfave/cli/v3"
)

const fileMode = 0600

type GenerateResult struct {
	Version  string            `json:"version" yaml:"version"`
	Seed     uint64            `json:"seed" yaml:"seed"`
	CSV      string            `json:"csv,omitempty" yaml:"csv,omitempty"`
	Bundle   string            `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Model    bool              `json:"model" yaml:"model"`
	Stored   string            `json:"stored,omitempty" yaml:"stored,omitempty"`
	Duration string            `json:"duration" yaml:"duration"`
	Summary  *generate.Summary `json:"summary" yaml:"summary"`
}

func newGenerateCmd() *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate the synthetic dataset, fit the scaler and write the bundle",
		UsageText: `credpulse generate                                 # 10,000 rows, seed 42
   credpulse generate --rows 500 --seed 7 --out data.csv
   credpulse generate --model model.yaml             # attach a trained model to the bundle
   credpulse generate --db credpulse.db              # also store the rows in sqlite`,
		Action: cmdGenerate,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "rows", Usage: "Number of students to generate (default: 10000)"},
			&cli.Uint64Flag{Name: "seed", Usage: "Random seed (default: 42)"},
			&cli.IntFlag{Name: "colleges", Usage: "Number of colleges in the registry (default: 100)"},
			&cli.IntFlag{Name: "cities", Usage: "Number of cities in the registry (default: 10)"},
			&cli.IntFlag{Name: "workers", Usage: "Parallel workers (default: number of CPUs)"},
			&cli.StringFlag{Name: "out", Usage: "CSV output path, empty skips the CSV"},
			&cli.StringFlag{Name: "bundle", Usage: "Bundle output path", Value: bundle.FileNameDefault},
			&cli.StringFlag{Name: "model", Usage: "Trained model YAML to attach to the bundle (optional)"},
			&cli.StringFlag{Name: "db", Usage: "Database DSN to store the run in (optional)"},
			&cli.StringFlag{Name: "driver", Usage: "Database driver [sqlite, postgres]"},
		},
	}
}

func cmdGenerate(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	cfg := getConfig(cmd).Config

	opt := generate.DefaultOptions()
	opt.Rows = intOr(cmd, "rows", cfg.Generate.Rows)
	opt.Seed = cfg.Generate.Seed
	if cmd.IsSet("seed") {
		opt.Seed = cmd.Uint64("seed")
	}
	if w := intOr(cmd, "workers", cfg.Generate.Workers); w > 0 {
		opt.Workers = w
	}

	regOpt := registry.DefaultOptions()
	regOpt.NumColleges = intOr(cmd, "colleges", cfg.Generate.Colleges)
	regOpt.NumCities = intOr(cmd, "cities", cfg.Generate.Cities)

	// 1. registry
	reg, err := generate.NewRegistry(opt.Seed, regOpt)
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}
	slog.Debug("registry built", "colleges", len(reg.Colleges()), "cities", len(reg.Cities()))

	// 2. rows
	records, err := generate.Generate(ctx, reg, opt)
	if err != nil {
		return fmt.Errorf("generating dataset: %w", err)
	}

	// 3. scaler + bundle
	s, err := generate.FitScaler(records)
	if err != nil {
		return fmt.Errorf("fitting scaler: %w", err)
	}
	b, err := bundle.New(reg, s, opt.Seed, len(records))
	if err != nil {
		return err
	}

	res := &GenerateResult{
		Version: b.Version,
		Seed:    opt.Seed,
		Summary: generate.Summarize(records),
	}

	if p := cmd.String("model"); p != "" {
		m, err := bundle.LoadModel(p)
		if err != nil {
			return err
		}
		if err := b.Attach(m); err != nil {
			return err
		}
		res.Model = true
	}

	// 4. outputs
	out := cfg.Generate.Out
	if cmd.IsSet("out") {
		out = cmd.String("out")
	}
	if out != "" {
		if err := writeCSVFile(out, records); err != nil {
			return err
		}
		res.CSV = out
		slog.Info("dataset written", "path", out, "rows", len(records))
	}

	if p := cmd.String("bundle"); p != "" {
		if err := b.Save(p); err != nil {
			return err
		}
		res.Bundle = p
		slog.Info("bundle written", "path", p, "version", b.Version)
	}

	// 5. optional store
	if dsn := stringOr(cmd, "db", cfg.Store.DSN); dsn != "" {
		store, err := openStore(ctx, cmd, dsn)
		if err != nil {
			return err
		}
		defer store.Close()

		run := &data.Run{
			ID:       b.Version,
			Seed:     opt.Seed,
			Colleges: regOpt.NumColleges,
			Cities:   regOpt.NumCities,
		}
		if err := store.SaveRun(ctx, run, records); err != nil {
			return fmt.Errorf("storing run: %w", err)
		}
		res.Stored = string(store.Driver())
		slog.Info("run stored", "id", run.ID, "driver", store.Driver())
	}

	res.Duration = time.Since(start).String()

	if err := encode(cmd, res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func writeCSVFile(path string, records []*generate.Record) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := data.WriteCSV(f, records); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func openStore(ctx context.Context, cmd *cli.Command, dsn string) (*data.Store, error) {
	driver, err := data.ParseDriver(stringOr(cmd, "driver", getConfig(cmd).Config.Store.Driver))
	if err != nil {
		return nil, err
	}
	store, err := data.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}
	return store, nil
}

func intOr(cmd *cli.Command, name string, def int) int {
	if cmd.IsSet(name) {
		return int(cmd.Int(name))
	}
	return def
}

func stringOr(cmd *cli.Command, name, def string) string {
	if cmd.IsSet(name) {
		return cmd.String(name)
	}
	return def
}
