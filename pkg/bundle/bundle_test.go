package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/credpulse/pkg/feature"
	"github.com/mchmarny/credpulse/pkg/model"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/mchmarny/credpulse/pkg/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	reg, err := registry.New(
		[]registry.College{{Name: "C1", Tier: registry.Tier1, MedianSalary: 1_000_000, HighestSalary: 2_000_000, City: "Town1"}},
		[]registry.City{{Name: "Town1", Tier: registry.Tier1}},
	)
	require.NoError(t, err)

	s := &scale.State{Ranges: map[string]scale.Range{}}
	for _, f := range feature.Numeric {
		s.Ranges[f] = scale.Range{Min: 0, Max: 10}
	}

	b, err := New(reg, s, 42, 100)
	require.NoError(t, err)

	coef := make(map[string]float64, len(feature.Order))
	for _, f := range feature.Order {
		coef[f] = 0.1
	}
	require.NoError(t, b.Attach(&model.Linear{Kind: model.KindLinear, TrainedOn: b.Version, Coefficients: coef}))
	return b
}

func TestNew(t *testing.T) {
	b := testBundle(t)
	assert.NotEmpty(t, b.Version)
	assert.Equal(t, feature.Order, b.Features)
	assert.Equal(t, uint64(42), b.Seed)

	_, err := New(nil, nil, 1, 1)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	b := testBundle(t)
	path := filepath.Join(t.TempDir(), FileNameDefault)

	require.NoError(t, b.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, b.Version, got.Version)
	assert.Equal(t, b.Registry, got.Registry)
	assert.Equal(t, b.Scaler, got.Scaler)
	assert.Equal(t, b.Model.Coefficients, got.Model.Coefficients)

	reg, s, m, err := got.Unpack()
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.NotNil(t, s)

	y, err := m.Predict(make([]float64, len(feature.Order)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, y)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: [unterminated"), 0600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestUnpack_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bundle)
		target error
	}{
		{"no version", func(b *Bundle) { b.Version = "" }, nil},
		{"reordered features", func(b *Bundle) {
			b.Features[0], b.Features[1] = b.Features[1], b.Features[0]
		}, model.ErrInconsistentFeatureVector},
		{"short features", func(b *Bundle) { b.Features = b.Features[:5] }, model.ErrInconsistentFeatureVector},
		{"no registry", func(b *Bundle) { b.Registry = nil }, nil},
		{"bad registry", func(b *Bundle) { b.Registry.Colleges[0].HighestSalary = 1 }, nil},
		{"degenerate scaler", func(b *Bundle) {
			b.Scaler.Ranges[feature.CIBILScore] = scale.Range{Min: 600, Max: 600}
		}, scale.ErrDegenerateRange},
		{"no model", func(b *Bundle) { b.Model = nil }, nil},
		{"model missing coefficient", func(b *Bundle) {
			delete(b.Model.Coefficients, feature.Salary)
		}, model.ErrInconsistentFeatureVector},
		{"model from other bundle", func(b *Bundle) { b.Model.TrainedOn = "other" }, model.ErrInconsistentFeatureVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBundle(t)
			tt.mutate(b)
			_, _, _, err := b.Unpack()
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestAttach(t *testing.T) {
	b := testBundle(t)
	assert.Error(t, b.Attach(nil))
	assert.ErrorIs(t, b.Attach(&model.Linear{TrainedOn: "elsewhere"}), model.ErrInconsistentFeatureVector)
}

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`kind: linear
intercept: 0.05
coefficients:
  gpa: 0.3
  salary: 0.01
`), 0600))

	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, model.KindLinear, m.Kind)
	assert.Equal(t, 0.05, m.Intercept)
	assert.Equal(t, 0.3, m.Coefficients["gpa"])
}
