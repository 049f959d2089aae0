// internal/workers/loan/eligibility-decision/evaluator.go
package eligibilitydecision

import (
	"context"
	"fmt"
	"math"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/models"
)

const (
	ReasonLowIncome      = "Low income"
	ReasonHighEMIBurden  = "High EMI burden"
	ReasonLoanAmountHigh = "Loan amount too high"
)

// RiskEstimator is the probability-of-default collaborator.
type RiskEstimator interface {
	Estimate(ctx context.Context, app *models.LoanApplication) (float64, error)
}

type Evaluator struct {
	policy    Policy
	estimator RiskEstimator
	logger    logger.Logger
}

func NewEvaluator(policy Policy, estimator RiskEstimator, log logger.Logger) *Evaluator {
	return &Evaluator{
		policy:    policy,
		estimator: estimator,
		logger:    log.WithFields(map[string]interface{}{"component": "eligibility-evaluator"}),
	}
}

// Evaluate scores the application. Every rule runs; when several fire the
// reason of the last one is kept. Risk deductions never set a reason.
func (e *Evaluator) Evaluate(ctx context.Context, app *models.LoanApplication) (*models.EligibilityResult, error) {
	if app.MonthlyIncome <= 0 {
		return nil, errors.NewInvalidInputError("monthly_income must be positive")
	}
	if app.TenureMonths <= 0 {
		return nil, errors.NewInvalidInputError("tenure_months must be positive")
	}

	newEMI := float64(app.LoanAmount) / float64(app.TenureMonths)
	totalEMI := float64(app.ExistingEMI) + newEMI
	dti := totalEMI / float64(app.MonthlyIncome)

	p := e.policy
	score := p.StartingScore
	var reason *string

	if app.MonthlyIncome < p.LowIncomeThreshold {
		score -= p.LowIncomePenalty
		reason = strPtr(ReasonLowIncome)
	}
	if dti > p.MaxDTIRatio {
		score -= p.HighDTIPenalty
		reason = strPtr(ReasonHighEMIBurden)
	}
	// float64 so a very large income cannot wrap the cap negative
	if float64(app.LoanAmount) > float64(app.MonthlyIncome)*float64(p.LoanToIncomeCap) {
		score -= p.HighLoanPenalty
		reason = strPtr(ReasonLoanAmountHigh)
	}

	risk, err := e.estimator.Estimate(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("risk estimation: %w", err)
	}
	if math.IsNaN(risk) || risk < 0 || risk > 1 {
		return nil, fmt.Errorf("risk estimation: probability %v out of range", risk)
	}

	if risk > p.HighRiskThreshold {
		score -= p.HighRiskPenalty
	} else if risk > p.MediumRiskThreshold {
		score -= p.MediumRiskPenalty
	}

	result := &models.EligibilityResult{
		Decision:         e.decide(score),
		EligibilityScore: score,
		RiskProbability:  round2(risk),
		DTIRatio:         round2(dti),
		Reason:           reason,
	}

	e.logger.Info("eligibility evaluated", map[string]interface{}{
		"decision": result.Decision,
		"score":    result.EligibilityScore,
		"dtiRatio": result.DTIRatio,
		"risk":     result.RiskProbability,
	})

	return result, nil
}

func (e *Evaluator) decide(score float64) models.Decision {
	switch {
	case score >= e.policy.ApprovedMinScore:
		return models.DecisionApproved
	case score >= e.policy.ConditionalMinScore:
		return models.DecisionConditional
	default:
		return models.DecisionRejected
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func strPtr(s string) *string { return &s }
