// Package predict scores one student against a loaded bundle. It reproduces
// the generator's feature derivation with the deterministic serving variants.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/credpulse/pkg/bundle"
	"github.com/mchmarny/credpulse/pkg/feature"
	"github.com/mchmarny/credpulse/pkg/model"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/mchmarny/credpulse/pkg/scale"
)

var (
	// ErrMissingField is returned when a required request attribute is absent.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField is returned when an attribute is outside its domain.
	ErrInvalidField = errors.New("invalid field")
	// ErrTierMismatch is returned when a caller supplied tier disagrees with the registry.
	ErrTierMismatch = errors.New("tier mismatch")
)

// Request carries one student's raw attributes. Tiers are optional and only
// checked against the registry, the registry always wins. Numeric domains
// match what the generator draws.
type Request struct {
	GPA            *float64 `json:"gpa" yaml:"gpa" validate:"required,gte=4,lte=10"`
	Certifications *int     `json:"certifications" yaml:"certifications" validate:"required,gte=0,lt=10"`
	College        string   `json:"college" yaml:"college" validate:"required"`
	CollegeTier    string   `json:"college_tier,omitempty" yaml:"college_tier,omitempty"`
	CityTier       string   `json:"city_tier,omitempty" yaml:"city_tier,omitempty"`
	ParentIncome   *float64 `json:"parent_income" yaml:"parent_income" validate:"required,gte=2,lte=25"`
	CIBILScore     *int     `json:"cibil_score" yaml:"cibil_score" validate:"required,gte=300,lt=900"`
}

// Result is the scored request.
type Result struct {
	Score          float64            `json:"credit_worthiness" yaml:"credit_worthiness"`
	DisplayScore   float64            `json:"display_score" yaml:"display_score"`
	Version        string             `json:"version" yaml:"version"`
	College        string             `json:"college" yaml:"college"`
	City           string             `json:"city" yaml:"city"`
	CollegeTier    registry.Tier      `json:"college_tier" yaml:"college_tier"`
	CityTier       registry.Tier      `json:"city_tier" yaml:"city_tier"`
	PlacementRatio float64            `json:"placement_ratio" yaml:"placement_ratio"`
	Salary         float64            `json:"salary" yaml:"salary"`
	Features       map[string]float64 `json:"features" yaml:"features"`
}

// Service is safe for concurrent use. Nothing it holds is mutated after New.
type Service struct {
	version  string
	features []string
	deriver  *feature.Deriver
	scaler   *scale.State
	model    model.Model
	validate *validator.Validate
}

// New validates the bundle and prepares the service. An error here means the
// model, scaler and registry are not mutually consistent.
func New(b *bundle.Bundle) (*Service, error) {
	if b == nil {
		return nil, errors.New("bundle required")
	}
	reg, s, m, err := b.Unpack()
	if err != nil {
		return nil, fmt.Errorf("loading bundle %s: %w", b.Version, err)
	}
	d, err := feature.NewDeriver(reg)
	if err != nil {
		return nil, err
	}

	return &Service{
		version:  b.Version,
		features: slices.Clone(b.Features),
		deriver:  d,
		scaler:   s,
		model:    m,
		validate: newValidator(),
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) Version() string {
	return s.version
}

func (s *Service) Features() []string {
	return slices.Clone(s.features)
}

// Predict scores one request.
func (s *Service) Predict(ctx context.Context, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.check(req); err != nil {
		return nil, err
	}

	d, err := s.deriver.Resolve(req.College)
	if err != nil {
		return nil, err
	}
	if err := checkTier("college_tier", req.CollegeTier, d.CollegeTier); err != nil {
		return nil, err
	}
	if err := checkTier("city_tier", req.CityTier, d.CityTier); err != nil {
		return nil, err
	}

	placement, err := feature.ServingPlacementRatio(d.CollegeTier)
	if err != nil {
		return nil, err
	}
	salary, err := feature.ServingSalary(*req.GPA, *req.Certifications, d)
	if err != nil {
		return nil, err
	}

	raw := map[string]float64{
		feature.GPA:            *req.GPA,
		feature.Certifications: float64(*req.Certifications),
		feature.PlacementRatio: placement,
		feature.CIBILScore:     float64(*req.CIBILScore),
		feature.ParentIncome:   *req.ParentIncome,
		feature.Salary:         salary,
	}

	values := d.OneHot()
	for _, f := range feature.Numeric {
		v, err := s.scaler.Transform(f, raw[f])
		if err != nil {
			return nil, err
		}
		values[f] = v
	}

	x, err := assemble(s.features, values)
	if err != nil {
		return nil, err
	}

	score, err := s.model.Predict(x)
	if err != nil {
		return nil, err
	}

	return &Result{
		Score:          score,
		DisplayScore:   clamp(score, 0, 1),
		Version:        s.version,
		College:        d.College,
		City:           d.City,
		CollegeTier:    d.CollegeTier,
		CityTier:       d.CityTier,
		PlacementRatio: placement,
		Salary:         salary,
		Features:       values,
	}, nil
}

func (s *Service) check(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: request body", ErrMissingField)
	}
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}

	missing := make([]string, 0, len(ve))
	invalid := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidField, strings.Join(invalid, ", "))
}

func checkTier(field, supplied string, derived registry.Tier) error {
	if strings.TrimSpace(supplied) == "" {
		return nil
	}
	t, err := registry.ParseTier(supplied)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidField, field, err)
	}
	if t != derived {
		return fmt.Errorf("%w: %s %s, registry has %s", ErrTierMismatch, field, t, derived)
	}
	return nil
}

// assemble orders values by the model's feature list.
func assemble(order []string, values map[string]float64) ([]float64, error) {
	if len(order) != len(values) {
		return nil, fmt.Errorf("%w: derived %d features, model expects %d",
			model.ErrInconsistentFeatureVector, len(values), len(order))
	}
	x := make([]float64, len(order))
	for i, f := range order {
		v, ok := values[f]
		if !ok {
			return nil, fmt.Errorf("%w: feature %s not derived", model.ErrInconsistentFeatureVector, f)
		}
		x[i] = v
	}
	return x, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
