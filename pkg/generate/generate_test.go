package generate

import (
	"context"
	"testing"

	"github.com/mchmarny/credpulse/pkg/feature"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRows = 2_000

func generateTest(t *testing.T, seed uint64, workers int) (*registry.Registry, []*Record) {
	t.Helper()
	reg, err := NewRegistry(seed, registry.DefaultOptions())
	require.NoError(t, err)
	recs, err := Generate(context.Background(), reg, Options{Rows: testRows, Seed: seed, Workers: workers})
	require.NoError(t, err)
	require.Len(t, recs, testRows)
	return reg, recs
}

func TestGenerate_RowInvariants(t *testing.T) {
	reg, recs := generateTest(t, SeedDefault, 4)

	for i, r := range recs {
		require.NotNil(t, r, "row %d", i)

		highest, err := reg.HighestSalary(r.College)
		require.NoError(t, err)
		assert.LessOrEqual(t, r.Salary, float64(highest), "salary cap row %d", i)

		city, err := reg.CityOf(r.College)
		require.NoError(t, err)
		assert.Equal(t, city, r.City)

		cityTier, err := reg.TierOfCity(city)
		require.NoError(t, err)
		assert.Equal(t, cityTier, r.CityTier, "city tier row %d", i)

		collegeTier, err := reg.TierOf(r.College)
		require.NoError(t, err)
		assert.Equal(t, collegeTier, r.CollegeTier)

		assert.GreaterOrEqual(t, r.GPA, feature.GPAMin)
		assert.LessOrEqual(t, r.GPA, feature.GPAMax)
		assert.InDelta(t, r.GPA, float64(int(r.GPA*100+0.5))/100, 1e-9)
		assert.GreaterOrEqual(t, r.Certifications, 0)
		assert.Less(t, r.Certifications, feature.CertificationsMax)
		assert.GreaterOrEqual(t, r.CIBILScore, feature.CIBILMin)
		assert.Less(t, r.CIBILScore, feature.CIBILMax)
		assert.GreaterOrEqual(t, r.ParentIncome, feature.ParentIncomeMin)
		assert.LessOrEqual(t, r.ParentIncome, feature.ParentIncomeMax)

		lo, hi, err := feature.PlacementRange(r.CollegeTier)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.PlacementRatio, lo)
		assert.Less(t, r.PlacementRatio, hi)

		assert.InDelta(t, feature.Creditworthiness(r.GPA, r.Certifications, r.PlacementRatio, r.CIBILScore, r.ParentIncome),
			r.Creditworthiness, 1e-12)
		assert.GreaterOrEqual(t, r.Creditworthiness, 0.0)
		assert.LessOrEqual(t, r.Creditworthiness, 1.0)
	}
}

func TestGenerate_ReproducibleAcrossWorkers(t *testing.T) {
	_, a := generateTest(t, 7, 1)
	_, b := generateTest(t, 7, 8)
	assert.Equal(t, a, b)

	_, c := generateTest(t, 8, 8)
	assert.NotEqual(t, a, c)
}

func TestGenerate_Invalid(t *testing.T) {
	reg, err := NewRegistry(1, registry.DefaultOptions())
	require.NoError(t, err)

	_, err = Generate(context.Background(), reg, Options{Rows: 0, Seed: 1})
	assert.Error(t, err)

	_, err = Generate(context.Background(), nil, Options{Rows: 10, Seed: 1})
	assert.Error(t, err)
}

func TestGenerate_Canceled(t *testing.T) {
	reg, err := NewRegistry(1, registry.DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Generate(ctx, reg, Options{Rows: 100, Seed: 1, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitScaler(t *testing.T) {
	_, recs := generateTest(t, 3, 4)

	s, err := FitScaler(recs)
	require.NoError(t, err)
	require.NoError(t, s.Validate(feature.Numeric))

	for _, f := range feature.Numeric {
		r := s.Ranges[f]
		lo, err := s.Transform(f, r.Min)
		require.NoError(t, err)
		assert.Equal(t, 0.0, lo)
		hi, err := s.Transform(f, r.Max)
		require.NoError(t, err)
		assert.Equal(t, 1.0, hi)
	}

	_, err = FitScaler(nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	_, recs := generateTest(t, 5, 2)

	s := Summarize(recs)
	assert.Equal(t, testRows, s.Rows)

	var total int
	for _, n := range s.CollegeTiers {
		total += n
	}
	assert.Equal(t, testRows, total)
	assert.LessOrEqual(t, s.Creditworthiness.Min, s.Creditworthiness.Mean)
	assert.LessOrEqual(t, s.Creditworthiness.Mean, s.Creditworthiness.Max)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Rows)
}
