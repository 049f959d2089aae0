package riskestimation

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/models"
)

// ==========================
// Feature rows
// ==========================

func TestBuildFeatures_ColumnOrderMatchesTraining(t *testing.T) {
	row, err := BuildFeatures(&models.LoanApplication{MonthlyIncome: 50000, LoanAmount: 300000, TenureMonths: 24})
	require.NoError(t, err)
	require.Len(t, row, len(TrainingColumns))

	for i, col := range TrainingColumns {
		assert.Equal(t, col, row[i].Column, "column %d", i)
	}
}

func TestBuildFeatures_ObservedAndDefaultValues(t *testing.T) {
	row, err := BuildFeatures(&models.LoanApplication{MonthlyIncome: 50000, ExistingEMI: 4000, LoanAmount: 300000, TenureMonths: 24})
	require.NoError(t, err)

	tests := []struct {
		column string
		want   interface{}
	}{
		{"person_income", 600000.0},
		{"loan_amnt", 300000.0},
		{"loan_percent_income", 0.5},
		{"person_age", 30.0},
		{"person_gender", "male"},
		{"person_education", "Bachelor"},
		{"person_home_ownership", "RENT"},
		{"loan_int_rate", 12.0},
		{"previous_loan_defaults_on_file", "N"},
		{"credit_score", 650.0},
		{"loan_intent", "PERSONAL"},
		{"loan_grade", "B"},
	}
	for _, tt := range tests {
		got, ok := row.Lookup(tt.column)
		require.True(t, ok, tt.column)
		assert.Equal(t, tt.want, got, tt.column)
	}
}

func TestBuildFeatures_ZeroIncomeIsInvalidInput(t *testing.T) {
	_, err := BuildFeatures(&models.LoanApplication{MonthlyIncome: 0, LoanAmount: 1000, TenureMonths: 12})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
}

// ==========================
// Model artifact
// ==========================

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := LoadModel(filepath.Join("testdata", "model.json"))
	require.NoError(t, err)
	return m
}

func TestModel_Predict(t *testing.T) {
	m := loadTestModel(t)
	row, err := BuildFeatures(&models.LoanApplication{MonthlyIncome: 100000, LoanAmount: 200000, TenureMonths: 36})
	require.NoError(t, err)

	p, err := m.Predict(row)
	require.NoError(t, err)

	// intercept -1, loan_percent_income weight 2, RENT weight 0.5
	z := -1.0 + 2*(200000.0/1200000.0) + 0.5
	assert.InDelta(t, 1/(1+math.Exp(-z)), p, 1e-12)
}

func TestModel_PredictRejectsReorderedRow(t *testing.T) {
	m := loadTestModel(t)
	row, err := BuildFeatures(&models.LoanApplication{MonthlyIncome: 100000, LoanAmount: 200000, TenureMonths: 36})
	require.NoError(t, err)

	row[0], row[1] = row[1], row[0]
	_, err = m.Predict(row)
	assert.Error(t, err)

	_, err = m.Predict(row[:3])
	assert.Error(t, err)
}

func TestModel_PredictRejectsWrongValueType(t *testing.T) {
	m := loadTestModel(t)
	row, err := BuildFeatures(&models.LoanApplication{MonthlyIncome: 100000, LoanAmount: 200000, TenureMonths: 36})
	require.NoError(t, err)

	row[0].Value = "thirty"
	_, err = m.Predict(row)
	assert.Error(t, err)
}

func TestLoadModel_Unavailable(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.json")},
		{"malformed artifact", garbage},
		{"column order mismatch", filepath.Join("testdata", "model_reordered.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadModel(tt.path)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeModelUnavailable))
		})
	}
}

func TestLoadModel_ShippedArtifact(t *testing.T) {
	m, err := LoadModel(filepath.Join("..", "..", "..", "..", "models", "risk_model.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, m.Version)

	estimator := NewModelEstimator(m, logger.NewTestLogger(t))

	low, err := estimator.Estimate(t.Context(), &models.LoanApplication{MonthlyIncome: 100000, LoanAmount: 200000, TenureMonths: 36})
	require.NoError(t, err)
	assert.Less(t, low, 0.4)

	high, err := estimator.Estimate(t.Context(), &models.LoanApplication{MonthlyIncome: 20000, ExistingEMI: 2000, LoanAmount: 300000, TenureMonths: 24})
	require.NoError(t, err)
	assert.Greater(t, high, 0.6)
}
