// Package bundle persists the registry snapshot, fitted scaler and model as a
// single versioned artifact. The three only make sense together.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/credpulse/pkg/feature"
	"github.com/mchmarny/credpulse/pkg/model"
	"github.com/mchmarny/credpulse/pkg/registry"
	"github.com/mchmarny/credpulse/pkg/scale"
	"gopkg.in/yaml.v3"
)

const (
	FileNameDefault = "bundle.yaml"

	fileMode = 0600
)

var errIncomplete = errors.New("incomplete bundle")

// Bundle is the versioned artifact loaded at service start.
type Bundle struct {
	Version   string             `json:"version" yaml:"version"`
	CreatedAt time.Time          `json:"created_at" yaml:"created_at"`
	Seed      uint64             `json:"seed" yaml:"seed"`
	Rows      int                `json:"rows" yaml:"rows"`
	Features  []string           `json:"features" yaml:"features"`
	Registry  *registry.Snapshot `json:"registry" yaml:"registry"`
	Scaler    *scale.State       `json:"scaler" yaml:"scaler"`
	Model     *model.Linear      `json:"model,omitempty" yaml:"model,omitempty"`
}

// New stamps a fresh version on the registry and scaler of one generation run.
// The model is attached later.
func New(reg *registry.Registry, s *scale.State, seed uint64, rows int) (*Bundle, error) {
	if reg == nil || s == nil {
		return nil, fmt.Errorf("%w: registry and scaler required", errIncomplete)
	}
	return &Bundle{
		Version:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Seed:      seed,
		Rows:      rows,
		Features:  slices.Clone(feature.Order),
		Registry:  reg.Snapshot(),
		Scaler:    s,
	}, nil
}

// Attach sets the model. A model trained on a different bundle version is rejected.
func (b *Bundle) Attach(m *model.Linear) error {
	if m == nil {
		return fmt.Errorf("%w: model required", errIncomplete)
	}
	if m.TrainedOn != "" && m.TrainedOn != b.Version {
		return fmt.Errorf("%w: model trained on bundle %s, bundle is %s",
			model.ErrInconsistentFeatureVector, m.TrainedOn, b.Version)
	}
	b.Model = m
	return nil
}

// Unpack validates the bundle and returns its parts ready for serving.
// Any error here must block service startup.
func (b *Bundle) Unpack() (*registry.Registry, *scale.State, *model.Linear, error) {
	if b.Version == "" {
		return nil, nil, nil, fmt.Errorf("%w: version missing", errIncomplete)
	}
	if !slices.Equal(b.Features, feature.Order) {
		return nil, nil, nil, fmt.Errorf("%w: bundle features %v, expected %v",
			model.ErrInconsistentFeatureVector, b.Features, feature.Order)
	}
	if b.Registry == nil {
		return nil, nil, nil, fmt.Errorf("%w: registry missing", errIncomplete)
	}
	reg, err := registry.FromSnapshot(b.Registry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid registry snapshot: %w", err)
	}
	if err := b.Scaler.Validate(feature.Numeric); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid scaler state: %w", err)
	}
	if b.Model == nil {
		return nil, nil, nil, fmt.Errorf("%w: model missing", errIncomplete)
	}
	if b.Model.TrainedOn != "" && b.Model.TrainedOn != b.Version {
		return nil, nil, nil, fmt.Errorf("%w: model trained on bundle %s, bundle is %s",
			model.ErrInconsistentFeatureVector, b.Model.TrainedOn, b.Version)
	}
	if err := b.Model.Bind(b.Features); err != nil {
		return nil, nil, nil, err
	}
	return reg, b.Scaler, b.Model, nil
}

// Save writes the bundle as YAML.
func (b *Bundle) Save(path string) error {
	if path == "" {
		return errors.New("bundle path required")
	}
	out, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling bundle: %w", err)
	}
	if err := os.WriteFile(path, out, fileMode); err != nil {
		return fmt.Errorf("writing bundle %s: %w", path, err)
	}
	return nil
}

// Load reads a bundle. It does not validate it, see Unpack.
func Load(path string) (*Bundle, error) {
	var b Bundle
	if err := readYAML(path, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadModel reads a standalone model file produced by a trainer.
func LoadModel(path string) (*model.Linear, error) {
	var m model.Linear
	if err := readYAML(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func readYAML(path string, v any) error {
	if path == "" {
		return errors.New("file path required")
	}
	in, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(in, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
