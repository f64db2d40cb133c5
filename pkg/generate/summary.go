package generate

import (
	"math"

	"github.com/mchmarny/credpulse/pkg/registry"
)

// Summary describes a generated table.
type Summary struct {
	Rows             int            `json:"rows" yaml:"rows"`
	CollegeTiers     map[string]int `json:"college_tiers" yaml:"college_tiers"`
	CityTiers        map[string]int `json:"city_tiers" yaml:"city_tiers"`
	Creditworthiness Stats          `json:"credit_worthiness" yaml:"credit_worthiness"`
	Salary           Stats          `json:"salary" yaml:"salary"`
}

// Stats is a min, max and mean triple.
type Stats struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Mean float64 `json:"mean" yaml:"mean"`
}

func Summarize(records []*Record) *Summary {
	s := &Summary{
		Rows:         len(records),
		CollegeTiers: make(map[string]int, len(registry.Tiers)),
		CityTiers:    make(map[string]int, len(registry.Tiers)),
	}
	if len(records) == 0 {
		return s
	}

	cw := newAccumulator()
	sal := newAccumulator()
	for _, r := range records {
		s.CollegeTiers[r.CollegeTier.String()]++
		s.CityTiers[r.CityTier.String()]++
		cw.add(r.Creditworthiness)
		sal.add(r.Salary)
	}
	s.Creditworthiness = cw.stats()
	s.Salary = sal.stats()
	return s
}

type accumulator struct {
	min, max, sum float64
	n             int
}

func newAccumulator() *accumulator {
	return &accumulator{min: math.Inf(1), max: math.Inf(-1)}
}

func (a *accumulator) add(v float64) {
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.sum += v
	a.n++
}

func (a *accumulator) stats() Stats {
	return Stats{Min: a.min, Max: a.max, Mean: a.sum / float64(a.n)}
}
