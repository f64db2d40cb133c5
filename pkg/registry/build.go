package registry

import (
	"fmt"
	"math/rand/v2"
)

const (
	CollegeCountDefault = 100
	CityCountDefault    = 10

	collegeNameFormat = "College_%d"
	cityNameFormat    = "City_%d"
)

// SalaryRange is a half open range [Min, Max) in currency units.
type SalaryRange struct {
	Min int64 `json:"min" yaml:"min"`
	Max int64 `json:"max" yaml:"max"`
}

func (s SalaryRange) draw(rng *rand.Rand) int64 {
	return s.Min + rng.Int64N(s.Max-s.Min)
}

func (s SalaryRange) valid() bool {
	return s.Min > 0 && s.Max > s.Min
}

// Options controls synthetic registry construction.
type Options struct {
	NumColleges        int                  `json:"colleges" yaml:"colleges"`
	NumCities          int                  `json:"cities" yaml:"cities"`
	CollegeTierWeights map[Tier]float64     `json:"college_tier_weights" yaml:"college_tier_weights"`
	CityTierWeights    map[Tier]float64     `json:"city_tier_weights" yaml:"city_tier_weights"`
	SalaryRanges       map[Tier]SalaryRange `json:"salary_ranges" yaml:"salary_ranges"`
	SalarySpread       SalaryRange          `json:"salary_spread" yaml:"salary_spread"`
}

// DefaultOptions returns the reference distribution: 100 colleges, 10 cities.
func DefaultOptions() Options {
	return Options{
		NumColleges: CollegeCountDefault,
		NumCities:   CityCountDefault,
		CollegeTierWeights: map[Tier]float64{
			Tier1: 0.2,
			Tier2: 0.5,
			Tier3: 0.3,
		},
		CityTierWeights: map[Tier]float64{
			Tier1: 0.3,
			Tier2: 0.4,
			Tier3: 0.3,
		},
		SalaryRanges: map[Tier]SalaryRange{
			Tier1: {Min: 1_000_000, Max: 3_000_000},
			Tier2: {Min: 500_000, Max: 2_000_000},
			Tier3: {Min: 300_000, Max: 1_000_000},
		},
		SalarySpread: SalaryRange{Min: 500_000, Max: 2_000_000},
	}
}

func (o Options) validate() error {
	if o.NumColleges <= 0 {
		return fmt.Errorf("%w: college count must be positive, got %d", errInvalidEntry, o.NumColleges)
	}
	if o.NumCities <= 0 {
		return fmt.Errorf("%w: city count must be positive, got %d", errInvalidEntry, o.NumCities)
	}
	if err := validateWeights("college", o.CollegeTierWeights); err != nil {
		return err
	}
	if err := validateWeights("city", o.CityTierWeights); err != nil {
		return err
	}
	for _, t := range Tiers {
		if r, ok := o.SalaryRanges[t]; !ok || !r.valid() {
			return fmt.Errorf("%w: salary range for %s missing or empty", errInvalidEntry, t)
		}
	}
	if !o.SalarySpread.valid() {
		return fmt.Errorf("%w: salary spread must be a positive non-empty range", errInvalidEntry)
	}
	return nil
}

func validateWeights(kind string, w map[Tier]float64) error {
	var sum float64
	for t, v := range w {
		if !t.Valid() {
			return fmt.Errorf("%w: %s weights contain invalid tier", errInvalidEntry, kind)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s weight for %s is negative", errInvalidEntry, kind, t)
		}
		sum += v
	}
	if sum <= 0 {
		return fmt.Errorf("%w: %s tier weights must sum to a positive value", errInvalidEntry, kind)
	}
	return nil
}

// Build draws a synthetic registry from rng. Colleges get their tier first,
// then their salary pair, then cities get tiers and colleges get home cities.
// Highest salary is median plus a positive spread, so it always exceeds the median.
func Build(rng *rand.Rand, opt Options) (*Registry, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source required", errInvalidEntry)
	}
	if err := opt.validate(); err != nil {
		return nil, err
	}

	colleges := make([]College, opt.NumColleges)
	for i := range colleges {
		colleges[i] = College{
			Name: fmt.Sprintf(collegeNameFormat, i+1),
			Tier: weightedTier(rng, opt.CollegeTierWeights),
		}
	}

	for i := range colleges {
		median := opt.SalaryRanges[colleges[i].Tier].draw(rng)
		colleges[i].MedianSalary = median
		colleges[i].HighestSalary = median + opt.SalarySpread.draw(rng)
	}

	cities := make([]City, opt.NumCities)
	for i := range cities {
		cities[i] = City{
			Name: fmt.Sprintf(cityNameFormat, i+1),
			Tier: weightedTier(rng, opt.CityTierWeights),
		}
	}

	for i := range colleges {
		colleges[i].City = cities[rng.IntN(len(cities))].Name
	}

	return New(colleges, cities)
}

func weightedTier(rng *rand.Rand, w map[Tier]float64) Tier {
	var total float64
	for _, t := range Tiers {
		total += w[t]
	}

	x := rng.Float64() * total
	last := TierUnknown
	for _, t := range Tiers {
		if w[t] <= 0 {
			continue
		}
		last = t
		if x < w[t] {
			return t
		}
		x -= w[t]
	}
	// float rounding can leave x marginally above the final bucket
	return last
}
