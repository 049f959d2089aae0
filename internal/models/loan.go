// internal/models/loan.go
package models

import (
	"fmt"
	"strings"
)

// LoanApplication is the applicant-supplied input. Amounts are whole rupees.
type LoanApplication struct {
	MonthlyIncome int `json:"monthly_income"`
	ExistingEMI   int `json:"existing_emi"`
	LoanAmount    int `json:"loan_amount"`
	TenureMonths  int `json:"tenure_months"`
}

// Validate reports every field that violates the input contract.
func (a LoanApplication) Validate() error {
	var problems []string
	if a.MonthlyIncome <= 0 {
		problems = append(problems, "monthly_income must be positive")
	}
	if a.ExistingEMI < 0 {
		problems = append(problems, "existing_emi must not be negative")
	}
	if a.LoanAmount <= 0 {
		problems = append(problems, "loan_amount must be positive")
	}
	if a.TenureMonths <= 0 {
		problems = append(problems, "tenure_months must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Snapshot renders the application as an audit record.
func (a LoanApplication) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"monthly_income": a.MonthlyIncome,
		"existing_emi":   a.ExistingEMI,
		"loan_amount":    a.LoanAmount,
		"tenure_months":  a.TenureMonths,
	}
}
