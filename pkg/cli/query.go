package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mchmarny/credpulse/pkg/bundle"
	"github.com/mchmarny/credpulse/pkg/client"
	"github.com/mchmarny/credpulse/pkg/data"
	"github.com/mchmarny/credpulse/pkg/generate"
	"github.com/mchmarny/credpulse/pkg/predict"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/urfave/cli/v3"
)

func bundleFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "bundle",
		Usage: "Path to the bundle file (default: server.bundle from config)",
	}
}

func newRegistryCmd() *cli.Command {
	return &cli.Command{
		Name:    "registry",
		Aliases: []string{"reg"},
		Usage:   "Print the college and city registry of a bundle",
		Action:  cmdRegistry,
		Flags: []cli.Flag{
			bundleFlag(),
			&cli.StringFlag{Name: "college", Usage: "Print a single college"},
		},
	}
}

type CollegeResult struct {
	registry.College `yaml:",inline"`
	CityTier registry.Tier `json:"city_tier" yaml:"city_tier"`
}

func cmdRegistry(_ context.Context, cmd *cli.Command) error {
	b, err := loadBundle(cmd)
	if err != nil {
		return err
	}
	if b.Registry == nil {
		return errors.New("bundle has no registry")
	}

	name := cmd.String("college")
	if name == "" {
		return encode(cmd, b.Registry)
	}

	reg, err := registry.FromSnapshot(b.Registry)
	if err != nil {
		return err
	}
	c, err := reg.College(name)
	if err != nil {
		return err
	}
	t, err := reg.TierOfCity(c.City)
	if err != nil {
		return err
	}
	return encode(cmd, &CollegeResult{College: c, CityTier: t})
}

func newPredictCmd() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Score one student against a bundle",
		UsageText: `credpulse predict --gpa 8.5 --certifications 4 --college College_12 \
     --parent-income 12 --cibil 720`,
		Action: cmdPredict,
		Flags: []cli.Flag{
			bundleFlag(),
			&cli.StringFlag{Name: "remote", Usage: "Score against a running service URL instead of a local bundle"},
			&cli.FloatFlag{Name: "gpa", Usage: "GPA [4-10]"},
			&cli.IntFlag{Name: "certifications", Usage: "Certifications and skills [0-9]"},
			&cli.StringFlag{Name: "college", Usage: "College name from the registry"},
			&cli.StringFlag{Name: "college-tier", Usage: "Expected college tier (optional, checked against the registry)"},
			&cli.StringFlag{Name: "city-tier", Usage: "Expected city tier (optional, checked against the registry)"},
			&cli.FloatFlag{Name: "parent-income", Usage: "Parent income in LPA"},
			&cli.IntFlag{Name: "cibil", Usage: "CIBIL score [300-899]"},
		},
	}
}

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	req := &predict.Request{
		College:     cmd.String("college"),
		CollegeTier: cmd.String("college-tier"),
		CityTier:    cmd.String("city-tier"),
	}
	if cmd.IsSet("gpa") {
		v := cmd.Float("gpa")
		req.GPA = &v
	}
	if cmd.IsSet("certifications") {
		v := int(cmd.Int("certifications"))
		req.Certifications = &v
	}
	if cmd.IsSet("parent-income") {
		v := cmd.Float("parent-income")
		req.ParentIncome = &v
	}
	if cmd.IsSet("cibil") {
		v := int(cmd.Int("cibil"))
		req.CIBILScore = &v
	}

	var scorer interface {
		Predict(context.Context, *predict.Request) (*predict.Result, error)
	}
	if remote := cmd.String("remote"); remote != "" {
		c, err := client.New(remote)
		if err != nil {
			return err
		}
		scorer = c
	} else {
		b, err := loadBundle(cmd)
		if err != nil {
			return err
		}
		svc, err := predict.New(b)
		if err != nil {
			return err
		}
		scorer = svc
	}

	res, err := scorer.Predict(ctx, req)
	if err != nil {
		return err
	}
	return encode(cmd, res)
}

func newSummaryCmd() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Summarize a dataset from a CSV file or a stored run",
		UsageText: `credpulse summary --csv student_creditworthiness_dataset.csv
   credpulse summary --db credpulse.db --run 6f1c...`,
		Action: cmdSummary,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "csv", Usage: "Dataset CSV path"},
			&cli.StringFlag{Name: "db", Usage: "Database DSN"},
			&cli.StringFlag{Name: "driver", Usage: "Database driver [sqlite, postgres]"},
			&cli.StringFlag{Name: "run", Usage: "Stored run id"},
		},
	}
}

func cmdSummary(ctx context.Context, cmd *cli.Command) error {
	var (
		records []*generate.Record
		err     error
	)

	switch {
	case cmd.String("csv") != "":
		records, err = readCSVFile(cmd.String("csv"))
	case cmd.String("run") != "":
		dsn := stringOr(cmd, "db", getConfig(cmd).Config.Store.DSN)
		if dsn == "" {
			return errors.New("--db required with --run")
		}
		store, openErr := openStore(ctx, cmd, dsn)
		if openErr != nil {
			return openErr
		}
		defer store.Close()
		records, err = store.GetRecords(ctx, cmd.String("run"))
	default:
		return cli.ShowSubcommandHelp(cmd)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("dataset is empty")
	}
	return encode(cmd, generate.Summarize(records))
}

func newRunsCmd() *cli.Command {
	return &cli.Command{
		Name:   "runs",
		Usage:  "List generation runs stored in the database",
		Action: cmdRuns,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "Database DSN"},
			&cli.StringFlag{Name: "driver", Usage: "Database driver [sqlite, postgres]"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs", Value: data.RunListLimitDefault},
		},
	}
}

func cmdRuns(ctx context.Context, cmd *cli.Command) error {
	dsn := stringOr(cmd, "db", getConfig(cmd).Config.Store.DSN)
	if dsn == "" {
		return errors.New("--db required")
	}
	store, err := openStore(ctx, cmd, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	return encode(cmd, runs)
}

func loadBundle(cmd *cli.Command) (*bundle.Bundle, error) {
	path := stringOr(cmd, "bundle", getConfig(cmd).Config.Server.Bundle)
	b, err := bundle.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading bundle: %w", err)
	}
	return b, nil
}

func readCSVFile(path string) ([]*generate.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return data.ReadCSV(f)
}
