// internal/workers/loan/risk-estimation/model.go
package riskestimation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"loan-advisor/internal/common/errors"
)

// NumericColumn holds the standard-scaler parameters and the fitted weight of a numeric column.
type NumericColumn struct {
	Mean        float64 `json:"mean"`
	Scale       float64 `json:"scale"`
	Coefficient float64 `json:"coefficient"`
}

// Model is a logistic regression over standard-scaled numeric columns and
// one-hot categorical columns. Unknown categories contribute nothing.
// A loaded Model is read-only and safe for concurrent use.
type Model struct {
	Version     string                        `json:"version"`
	Columns     []string                      `json:"columns"`
	Intercept   float64                       `json:"intercept"`
	Numeric     map[string]NumericColumn      `json:"numeric"`
	Categorical map[string]map[string]float64 `json:"categorical"`
}

// LoadModel reads and validates the exported artifact at path.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewModelUnavailableError(path, err)
	}

	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.NewModelUnavailableError(path, fmt.Errorf("decode artifact: %w", err))
	}
	if err := m.validate(); err != nil {
		return nil, errors.NewModelUnavailableError(path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Columns) != len(TrainingColumns) {
		return fmt.Errorf("artifact has %d columns, expected %d", len(m.Columns), len(TrainingColumns))
	}
	for i, col := range TrainingColumns {
		if m.Columns[i] != col {
			return fmt.Errorf("artifact column %d is %q, expected %q", i, m.Columns[i], col)
		}
		num, isNumeric := m.Numeric[col]
		_, isCategorical := m.Categorical[col]
		switch {
		case isNumeric && isCategorical:
			return fmt.Errorf("column %q is both numeric and categorical", col)
		case !isNumeric && !isCategorical:
			return fmt.Errorf("column %q has no fitted parameters", col)
		case isNumeric && num.Scale == 0:
			return fmt.Errorf("column %q has zero scale", col)
		}
	}
	return nil
}

// Predict returns the probability of default for row.
func (m *Model) Predict(row FeatureRow) (float64, error) {
	if len(row) != len(m.Columns) {
		return 0, fmt.Errorf("feature row has %d columns, model expects %d", len(row), len(m.Columns))
	}

	z := m.Intercept
	for i, f := range row {
		if f.Column != m.Columns[i] {
			return 0, fmt.Errorf("feature %d is %q, model expects %q", i, f.Column, m.Columns[i])
		}

		if num, ok := m.Numeric[f.Column]; ok {
			v, ok := f.Value.(float64)
			if !ok {
				return 0, fmt.Errorf("feature %q must be numeric, got %T", f.Column, f.Value)
			}
			z += num.Coefficient * (v - num.Mean) / num.Scale
			continue
		}

		v, ok := f.Value.(string)
		if !ok {
			return 0, fmt.Errorf("feature %q must be categorical, got %T", f.Column, f.Value)
		}
		z += m.Categorical[f.Column][v]
	}

	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN for %s", row)
	}
	return p, nil
}
