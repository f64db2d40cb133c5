// Package generate builds the synthetic student creditworthiness dataset.
//
// Every row draws from its own PCG stream keyed by (seed, row index), so a
// fixed seed yields the same table no matter how many workers compute it.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/mchmarny/credpulse/pkg/feature"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/mchmarny/credpulse/pkg/scale"
	"golang.org/x/sync/errgroup"
)

const (
	RowCountDefault = 10_000
	SeedDefault     = 42

	parentIncomeMean   = 10.0
	parentIncomeStdDev = 5.0

	registryStream = 0
	rowStreamBase  = 1 << 32
)

// Options controls dataset generation.
type Options struct {
	Rows    int    `json:"rows" yaml:"rows"`
	Seed    uint64 `json:"seed" yaml:"seed"`
	Workers int    `json:"workers" yaml:"workers"`
}

// DefaultOptions returns 10,000 rows with seed 42.
func DefaultOptions() Options {
	return Options{
		Rows:    RowCountDefault,
		Seed:    SeedDefault,
		Workers: runtime.NumCPU(),
	}
}

// Record is one synthetic student.
type Record struct {
	GPA              float64       `json:"gpa" yaml:"gpa"`
	Certifications   int           `json:"certifications" yaml:"certifications"`
	College          string        `json:"college" yaml:"college"`
	City             string        `json:"city" yaml:"city"`
	CollegeTier      registry.Tier `json:"college_tier" yaml:"college_tier"`
	CityTier         registry.Tier `json:"city_tier" yaml:"city_tier"`
	PlacementRatio   float64       `json:"placement_ratio" yaml:"placement_ratio"`
	CIBILScore       int           `json:"cibil_score" yaml:"cibil_score"`
	ParentIncome     float64       `json:"parent_income" yaml:"parent_income"`
	Salary           float64       `json:"salary" yaml:"salary"`
	Creditworthiness float64       `json:"credit_worthiness" yaml:"credit_worthiness"`
}

// Numeric returns the record's scaled features in feature.Numeric order.
func (r *Record) Numeric() []float64 {
	return []float64{
		r.GPA,
		float64(r.Certifications),
		r.PlacementRatio,
		float64(r.CIBILScore),
		r.ParentIncome,
		r.Salary,
	}
}

// NewRegistry draws the reference registry from the seed's registry stream.
func NewRegistry(seed uint64, opt registry.Options) (*registry.Registry, error) {
	return registry.Build(rand.New(rand.NewPCG(seed, registryStream)), opt)
}

// Generate draws opt.Rows independent students against reg.
func Generate(ctx context.Context, reg *registry.Registry, opt Options) ([]*Record, error) {
	if opt.Rows <= 0 {
		return nil, fmt.Errorf("row count must be positive, got %d", opt.Rows)
	}
	d, err := feature.NewDeriver(reg)
	if err != nil {
		return nil, err
	}
	colleges := reg.Colleges()

	workers := opt.Workers
	if workers <= 0 {
		workers = 1
	}

	slog.Debug("generating dataset", "rows", opt.Rows, "seed", opt.Seed, "workers", workers)

	records := make([]*Record, opt.Rows)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(opt.Seed, rowStreamBase+uint64(i)))
			rec, err := draw(rng, d, colleges)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func draw(rng *rand.Rand, d *feature.Deriver, colleges []string) (*Record, error) {
	gpa := math.Round((feature.GPAMin+rng.Float64()*(feature.GPAMax-feature.GPAMin))*100) / 100
	certs := rng.IntN(feature.CertificationsMax)
	college := colleges[rng.IntN(len(colleges))]
	cibil := feature.CIBILMin + rng.IntN(feature.CIBILMax-feature.CIBILMin)
	income := parentIncomeMean + rng.NormFloat64()*parentIncomeStdDev
	income = math.Max(feature.ParentIncomeMin, math.Min(feature.ParentIncomeMax, income))

	res, err := d.Resolve(college)
	if err != nil {
		return nil, err
	}

	placement, err := feature.TrainingPlacementRatio(rng, res.CollegeTier)
	if err != nil {
		return nil, err
	}

	salary, err := feature.TrainingSalary(rng, gpa, certs, res)
	if err != nil {
		return nil, err
	}

	return &Record{
		GPA:              gpa,
		Certifications:   certs,
		College:          res.College,
		City:             res.City,
		CollegeTier:      res.CollegeTier,
		CityTier:         res.CityTier,
		PlacementRatio:   placement,
		CIBILScore:       cibil,
		ParentIncome:     income,
		Salary:           salary,
		Creditworthiness: feature.Creditworthiness(gpa, certs, placement, cibil, income),
	}, nil
}

// FitScaler fits the normalization layer on the generated table.
func FitScaler(records []*Record) (*scale.State, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to fit")
	}
	rows := make([][]float64, len(records))
	for i, r := range records {
		rows[i] = r.Numeric()
	}
	return scale.Fit(feature.Numeric, rows)
}
