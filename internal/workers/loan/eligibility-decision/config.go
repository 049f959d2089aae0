// internal/workers/loan/eligibility-decision/config.go
package eligibilitydecision

// Policy holds the scoring thresholds. DefaultPolicy is the production policy.
type Policy struct {
	StartingScore       float64
	LowIncomeThreshold  int
	LowIncomePenalty    float64
	MaxDTIRatio         float64
	HighDTIPenalty      float64
	LoanToIncomeCap     int
	HighLoanPenalty     float64
	HighRiskThreshold   float64
	HighRiskPenalty     float64
	MediumRiskThreshold float64
	MediumRiskPenalty   float64
	ApprovedMinScore    float64
	ConditionalMinScore float64
}

func DefaultPolicy() Policy {
	return Policy{
		StartingScore:       100,
		LowIncomeThreshold:  25000,
		LowIncomePenalty:    40,
		MaxDTIRatio:         0.5,
		HighDTIPenalty:      40,
		LoanToIncomeCap:     10,
		HighLoanPenalty:     20,
		HighRiskThreshold:   0.6,
		HighRiskPenalty:     30,
		MediumRiskThreshold: 0.4,
		MediumRiskPenalty:   15,
		ApprovedMinScore:    70,
		ConditionalMinScore: 50,
	}
}
