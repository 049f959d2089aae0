// internal/models/eligibility.go
package models

// Decision is the outcome bucket of an eligibility evaluation.
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionConditional Decision = "conditional"
	DecisionRejected    Decision = "rejected"
)

// NeedsAdvice reports whether improvement advice is generated for the decision.
func (d Decision) NeedsAdvice() bool {
	return d == DecisionRejected || d == DecisionConditional
}

type EligibilityResult struct {
	Decision         Decision `json:"decision"`
	EligibilityScore float64  `json:"eligibility_score"`
	RiskProbability  float64  `json:"risk_probability"`
	DTIRatio         float64  `json:"dti_ratio"`
	Reason           *string  `json:"reason"`
}

// ReasonOr returns the reason label, or fallback when none was assigned.
func (r EligibilityResult) ReasonOr(fallback string) string {
	if r.Reason == nil || *r.Reason == "" {
		return fallback
	}
	return *r.Reason
}

// ImprovementFactor labels one thing the applicant could work on.
type ImprovementFactor string

const (
	FactorLowIncome          ImprovementFactor = "LOW_INCOME"
	FactorHighDTI            ImprovementFactor = "HIGH_DTI"
	FactorHighLoanAmount     ImprovementFactor = "HIGH_LOAN_AMOUNT"
	FactorHighRiskProfile    ImprovementFactor = "HIGH_RISK_PROFILE"
	FactorGeneralImprovement ImprovementFactor = "GENERAL_IMPROVEMENT"
)

// Explanation is the user-facing wording for a decision.
type Explanation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// FinalResponse is what the pipeline hands back to its caller.
type FinalResponse struct {
	SessionID                     string            `json:"session_id"`
	Status                        Decision          `json:"status"`
	Title                         string            `json:"title"`
	Message                       string            `json:"message"`
	Eligibility                   EligibilityResult `json:"eligibility"`
	PersonalizedImprovementAdvice *string           `json:"personalized_improvement_advice,omitempty"`
}
