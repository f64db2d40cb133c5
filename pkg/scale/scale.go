// Package scale fits and applies min-max scaling. A fitted State is persisted
// with the model and reused at serving time, it is never refit per request.
package scale

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDegenerateRange is returned when a feature's fitted min equals its max.
	ErrDegenerateRange = errors.New("degenerate range")

	errUnknownFeature = errors.New("unknown feature")
)

// Range is the fitted bounds of one feature.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r Range) degenerate() bool {
	return r.Max == r.Min
}

// State is the fitted scaler.
type State struct {
	Ranges map[string]Range `json:"ranges" yaml:"ranges"`
}

// Fit computes per-feature min and max. Each row holds one value per feature,
// in the order of features.
func Fit(features []string, rows [][]float64) (*State, error) {
	if len(features) == 0 {
		return nil, errors.New("at least one feature required")
	}
	if len(rows) == 0 {
		return nil, errors.New("cannot fit scaler on empty table")
	}

	mins := make([]float64, len(features))
	maxs := make([]float64, len(features))
	for i := range features {
		mins[i] = math.Inf(1)
		maxs[i] = math.Inf(-1)
	}

	for n, row := range rows {
		if len(row) != len(features) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", n, len(row), len(features))
		}
		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d feature %s is not finite", n, features[i])
			}
			mins[i] = math.Min(mins[i], v)
			maxs[i] = math.Max(maxs[i], v)
		}
	}

	s := &State{Ranges: make(map[string]Range, len(features))}
	for i, f := range features {
		r := Range{Min: mins[i], Max: maxs[i]}
		if r.degenerate() {
			return nil, fmt.Errorf("%w: feature %s has min = max = %v", ErrDegenerateRange, f, r.Min)
		}
		s.Ranges[f] = r
	}
	return s, nil
}

// Transform scales v to (v - min) / (max - min). Values outside the fitted
// range map outside [0,1].
func (s *State) Transform(feature string, v float64) (float64, error) {
	r, ok := s.Ranges[feature]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errUnknownFeature, feature)
	}
	if r.degenerate() {
		return 0, fmt.Errorf("%w: feature %s", ErrDegenerateRange, feature)
	}
	return (v - r.Min) / (r.Max - r.Min), nil
}

// Validate checks that every feature has a usable range.
func (s *State) Validate(features []string) error {
	if s == nil || len(s.Ranges) == 0 {
		return errors.New("scaler state is empty")
	}
	for _, f := range features {
		r, ok := s.Ranges[f]
		if !ok {
			return fmt.Errorf("%w: %s missing from scaler state", errUnknownFeature, f)
		}
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Max < r.Min {
			return fmt.Errorf("feature %s has invalid range [%v, %v]", f, r.Min, r.Max)
		}
		if r.degenerate() {
			return fmt.Errorf("%w: feature %s", ErrDegenerateRange, f)
		}
	}
	return nil
}
