// Package model holds the trained regression used for scoring. Training
// happens elsewhere; this package only loads and evaluates the artifact.
package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInconsistentFeatureVector is returned when a feature vector does not
// match what the model was trained on.
var ErrInconsistentFeatureVector = errors.New("inconsistent feature vector")

// Model scores one feature vector.
type Model interface {
	Predict(x []float64) (float64, error)
}

// Linear is an ordinary linear regression: intercept plus one coefficient per
// named feature. TrainedOn names the bundle version the dataset came from.
type Linear struct {
	Kind         string             `json:"kind" yaml:"kind"`
	TrainedOn    string             `json:"trained_on,omitempty" yaml:"trained_on,omitempty"`
	Intercept    float64            `json:"intercept" yaml:"intercept"`
	Coefficients map[string]float64 `json:"coefficients" yaml:"coefficients"`

	weights []float64
}

const KindLinear = "linear"

// Bind fixes the coefficient order to features. Every feature needs a
// coefficient and no extra coefficients are allowed.
func (m *Linear) Bind(features []string) error {
	if m.Kind != "" && m.Kind != KindLinear {
		return fmt.Errorf("unsupported model kind: %s", m.Kind)
	}
	if len(m.Coefficients) != len(features) {
		return fmt.Errorf("%w: model has %d coefficients, feature order has %d",
			ErrInconsistentFeatureVector, len(m.Coefficients), len(features))
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return errors.New("model intercept is not finite")
	}

	w := make([]float64, len(features))
	for i, f := range features {
		c, ok := m.Coefficients[f]
		if !ok {
			return fmt.Errorf("%w: no coefficient for feature %s", ErrInconsistentFeatureVector, f)
		}
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient for feature %s is not finite", f)
		}
		w[i] = c
	}
	m.weights = w
	return nil
}

// Predict returns intercept + w·x. Bind must be called first.
func (m *Linear) Predict(x []float64) (float64, error) {
	if m.weights == nil {
		return 0, errors.New("model not bound to a feature order")
	}
	if len(x) != len(m.weights) {
		return 0, fmt.Errorf("%w: got %d values, model expects %d",
			ErrInconsistentFeatureVector, len(x), len(m.weights))
	}
	y := m.Intercept
	for i, v := range x {
		y += m.weights[i] * v
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("%w: prediction is not finite", ErrInconsistentFeatureVector)
	}
	return y, nil
}
