// internal/workers/loan/credit-improvement/advisor.go
package creditimprovement

import (
	"context"
	"fmt"
	"strings"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/genai"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/metrics"
	"loan-advisor/internal/models"
)

const (
	Stage = "credit-improvement"

	// FallbackAdvice is returned whenever generated advice is unavailable.
	FallbackAdvice = "We recommend reducing your current debt obligations and maintaining a healthy credit score to improve future eligibility."

	lowIncomeThreshold = 30000
	highDTIRatio       = 0.5
	loanToIncomeCap    = 10
	highRiskThreshold  = 0.6
)

type Advisor struct {
	generator genai.Generator
	logger    logger.Logger
}

func NewAdvisor(generator genai.Generator, log logger.Logger) *Advisor {
	return &Advisor{
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"component": "credit-advisor"}),
	}
}

// Factors lists what the applicant could improve, in a fixed order. The
// income threshold here is higher than the one used for scoring.
// The result is never empty.
func Factors(app *models.LoanApplication, result *models.EligibilityResult) []models.ImprovementFactor {
	var factors []models.ImprovementFactor

	if app.MonthlyIncome < lowIncomeThreshold {
		factors = append(factors, models.FactorLowIncome)
	}
	if result.DTIRatio > highDTIRatio {
		factors = append(factors, models.FactorHighDTI)
	}
	if float64(app.LoanAmount) > float64(app.MonthlyIncome)*loanToIncomeCap {
		factors = append(factors, models.FactorHighLoanAmount)
	}
	if result.RiskProbability > highRiskThreshold {
		factors = append(factors, models.FactorHighRiskProfile)
	}

	if len(factors) == 0 {
		factors = append(factors, models.FactorGeneralImprovement)
	}
	return factors
}

// Factors is the package-level Factors, exposed for callers holding an *Advisor.
func (a *Advisor) Factors(app *models.LoanApplication, result *models.EligibilityResult) []models.ImprovementFactor {
	return Factors(app, result)
}

// Advice asks the generator for personalised advice and falls back to
// FallbackAdvice on any error. It never fails.
func (a *Advisor) Advice(ctx context.Context, factors []models.ImprovementFactor, app *models.LoanApplication) string {
	text, err := a.generate(ctx, factors, app)
	if err != nil {
		metrics.GenerationFallbacks.WithLabelValues(Stage).Inc()
		a.logger.Warn("advice generation failed, using fallback", map[string]interface{}{
			"error":   err,
			"factors": factors,
		})
		return FallbackAdvice
	}
	return text
}

func (a *Advisor) generate(ctx context.Context, factors []models.ImprovementFactor, app *models.LoanApplication) (string, error) {
	if a.generator == nil {
		return "", errors.NewGenerationFailedError(Stage, genai.ErrGenerationFailed)
	}

	text, err := a.generator.Generate(ctx, genai.Request{Prompt: buildPrompt(factors, app)})
	if err != nil {
		return "", errors.NewGenerationFailedError(Stage, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewGenerationFailedError(Stage, genai.ErrEmptyResponse)
	}
	return text, nil
}

func buildPrompt(factors []models.ImprovementFactor, app *models.LoanApplication) string {
	labels := make([]string, len(factors))
	for i, f := range factors {
		labels[i] = string(f)
	}

	var parts []string

	parts = append(parts, "You are a caring and expert financial advisor in India.")
	parts = append(parts, "Your client has applied for a loan but faces some challenges.")

	parts = append(parts, "\nContext:")
	parts = append(parts, fmt.Sprintf("- Monthly income: ₹%d", app.MonthlyIncome))
	parts = append(parts, fmt.Sprintf("- Existing EMI: ₹%d", app.ExistingEMI))
	parts = append(parts, fmt.Sprintf("- Requested loan amount: ₹%d", app.LoanAmount))
	parts = append(parts, fmt.Sprintf("- Loan tenure: %d months", app.TenureMonths))
	parts = append(parts, fmt.Sprintf("- Challenges identified: %s", strings.Join(labels, ", ")))

	parts = append(parts, "\nTask:")
	parts = append(parts, "Write warm, supportive and personalised advice as prose, NOT a list.")
	parts = append(parts, "- Refer to their income or EMI figures directly")
	parts = append(parts, "- Explain in simple terms why the application was rejected or conditional")
	parts = append(parts, "- Offer 2-3 concrete steps to improve future eligibility")
	parts = append(parts, "- Do not use bullet points or tables; write 1-2 natural paragraphs")
	parts = append(parts, "- Make no guarantees and give no illegal advice")

	return strings.Join(parts, "\n")
}
