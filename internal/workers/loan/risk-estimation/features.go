// internal/workers/loan/risk-estimation/features.go
package riskestimation

import (
	"fmt"
	"strings"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/models"
)

// TrainingColumns is the column order the risk model was fit with.
// Every feature row and every model artifact is checked against it.
var TrainingColumns = [...]string{
	"person_age",
	"person_gender",
	"person_education",
	"person_income",
	"person_emp_exp",
	"person_home_ownership",
	"loan_amnt",
	"loan_int_rate",
	"loan_percent_income",
	"cb_person_cred_hist_length",
	"cb_person_default_on_file",
	"previous_loan_defaults_on_file",
	"credit_score",
	"loan_intent",
	"loan_grade",
}

// defaults for attributes the application form does not collect
var defaultFeatures = map[string]interface{}{
	"person_age":                     30.0,
	"person_gender":                  "male",
	"person_education":               "Bachelor",
	"person_emp_exp":                 5.0,
	"person_home_ownership":          "RENT",
	"loan_int_rate":                  12.0,
	"cb_person_cred_hist_length":     6.0,
	"cb_person_default_on_file":      "N",
	"previous_loan_defaults_on_file": "N",
	"credit_score":                   650.0,
	"loan_intent":                    "PERSONAL",
	"loan_grade":                     "B",
}

// Feature is one named cell of a feature row. Value is a float64 for numeric
// columns and a string for categorical ones.
type Feature struct {
	Column string
	Value  interface{}
}

// FeatureRow is a single model input, always in TrainingColumns order.
type FeatureRow []Feature

// Lookup returns the value stored for column.
func (r FeatureRow) Lookup(column string) (interface{}, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return nil, false
}

func (r FeatureRow) String() string {
	parts := make([]string, len(r))
	for i, f := range r {
		parts[i] = fmt.Sprintf("%s=%v", f.Column, f.Value)
	}
	return strings.Join(parts, ",")
}

// BuildFeatures merges the observed application fields with the defaults.
func BuildFeatures(app *models.LoanApplication) (FeatureRow, error) {
	annualIncome := float64(app.MonthlyIncome) * 12
	if annualIncome <= 0 {
		return nil, errors.NewInvalidInputError("monthly_income must be positive to derive annual income")
	}

	observed := map[string]interface{}{
		"person_income":       annualIncome,
		"loan_amnt":           float64(app.LoanAmount),
		"loan_percent_income": float64(app.LoanAmount) / annualIncome,
	}

	row := make(FeatureRow, 0, len(TrainingColumns))
	for _, col := range TrainingColumns {
		if v, ok := observed[col]; ok {
			row = append(row, Feature{Column: col, Value: v})
			continue
		}
		v, ok := defaultFeatures[col]
		if !ok {
			return nil, fmt.Errorf("no value for feature column %q", col)
		}
		row = append(row, Feature{Column: col, Value: v})
	}
	return row, nil
}
