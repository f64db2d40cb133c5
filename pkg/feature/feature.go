// Package feature derives model features from raw student attributes.
//
// Placement ratio and salary come in two variants. The training variants draw
// from a random source so the generated dataset carries variance. The serving
// variants are deterministic so identical requests always score identically.
package feature

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/mchmarny/credpulse/pkg/registry"
)

const (
	GPAMin = 4.0
	GPAMax = 10.0

	CertificationsMax = 10

	CIBILMin = 300
	CIBILMax = 900

	ParentIncomeMin = 2.0
	ParentIncomeMax = 25.0

	salaryGPAPivot         = 5.0
	salaryPerCertification = 10_000
	salaryNoiseStdDev      = 100_000
)

// Model feature names.
const (
	GPA            = "gpa"
	Certifications = "certifications"
	PlacementRatio = "placement_ratio"
	CIBILScore     = "cibil_score"
	ParentIncome   = "parent_income"
	Salary         = "salary"
	CollegeTier2   = "college_tier_2"
	CollegeTier3   = "college_tier_3"
	CityTier2      = "city_tier_2"
	CityTier3      = "city_tier_3"
)

// Numeric lists the scaled features in vector order.
var Numeric = []string{GPA, Certifications, PlacementRatio, CIBILScore, ParentIncome, Salary}

// Order is the exact column order the model is trained on.
var Order = []string{
	GPA, Certifications, PlacementRatio, CIBILScore, ParentIncome, Salary,
	CollegeTier2, CollegeTier3, CityTier2, CityTier3,
}

// Weights of the creditworthiness sub-scores, in the order
// GPA, certifications, placement ratio, CIBIL, parent income.
var Weights = [5]float64{0.3, 0.2, 0.2, 0.2, 0.1}

// PlacementRange returns the placement ratio bounds for a college tier.
func PlacementRange(t registry.Tier) (lo, hi float64, err error) {
	switch t {
	case registry.Tier1:
		return 0.85, 1.0, nil
	case registry.Tier2:
		return 0.75, 0.85, nil
	case registry.Tier3:
		return 0.50, 0.75, nil
	default:
		return 0, 0, fmt.Errorf("no placement range for tier %d", int(t))
	}
}

// TrainingPlacementRatio draws uniformly from the tier's range.
func TrainingPlacementRatio(rng *rand.Rand, t registry.Tier) (float64, error) {
	lo, hi, err := PlacementRange(t)
	if err != nil {
		return 0, err
	}
	return lo + rng.Float64()*(hi-lo), nil
}

// ServingPlacementRatio is the midpoint of the tier's range.
func ServingPlacementRatio(t registry.Tier) (float64, error) {
	lo, hi, err := PlacementRange(t)
	if err != nil {
		return 0, err
	}
	return (lo + hi) / 2, nil
}

// CityAdjustment is the salary multiplier for a city tier.
func CityAdjustment(t registry.Tier) (float64, error) {
	switch t {
	case registry.Tier1:
		return 1.2, nil
	case registry.Tier2:
		return 1.0, nil
	case registry.Tier3:
		return 0.8, nil
	default:
		return 0, fmt.Errorf("no city adjustment for tier %d", int(t))
	}
}

// BaseSalary interpolates between median and highest salary by GPA and adds a
// flat amount per certification. GPA below the pivot pulls the estimate under
// the median and there is no lower bound.
func BaseSalary(gpa float64, certifications int, median, highest int64) float64 {
	m := float64(median)
	return m + (float64(highest)-m)*(gpa-salaryGPAPivot)/salaryGPAPivot +
		float64(certifications)*salaryPerCertification
}

// ServingSalary is the deterministic salary estimate: base times city
// adjustment, capped at highest salary.
func ServingSalary(gpa float64, certifications int, d *Derived) (float64, error) {
	adj, err := CityAdjustment(d.CityTier)
	if err != nil {
		return 0, err
	}
	s := BaseSalary(gpa, certifications, d.MedianSalary, d.HighestSalary) * adj
	return math.Min(s, float64(d.HighestSalary)), nil
}

// TrainingSalary adds gaussian noise before the cap.
func TrainingSalary(rng *rand.Rand, gpa float64, certifications int, d *Derived) (float64, error) {
	adj, err := CityAdjustment(d.CityTier)
	if err != nil {
		return 0, err
	}
	s := BaseSalary(gpa, certifications, d.MedianSalary, d.HighestSalary) * adj
	s += rng.NormFloat64() * salaryNoiseStdDev
	return math.Min(s, float64(d.HighestSalary)), nil
}

// Creditworthiness is the weighted sum of the five normalized sub-scores.
// Each sub-score is within [0,1] for in-domain inputs and the weights sum to 1,
// so the result is within [0,1] without clamping.
func Creditworthiness(gpa float64, certifications int, placementRatio float64, cibil int, parentIncome float64) float64 {
	scores := [5]float64{
		(gpa - GPAMin) / (GPAMax - GPAMin),
		float64(certifications) / CertificationsMax,
		placementRatio,
		float64(cibil-CIBILMin) / (CIBILMax - CIBILMin),
		(parentIncome - ParentIncomeMin) / (ParentIncomeMax - ParentIncomeMin),
	}

	var sum float64
	for i, s := range scores {
		sum += Weights[i] * s
	}
	return sum
}

// EncodeTier one-hot encodes a tier with Tier1 as the implicit baseline.
func EncodeTier(t registry.Tier) (isTier2, isTier3 bool) {
	return t == registry.Tier2, t == registry.Tier3
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
