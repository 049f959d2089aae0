// internal/workers/loan/empathy-explanation/explainer.go
package empathyexplanation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/genai"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/metrics"
	"loan-advisor/internal/common/validation"
	"loan-advisor/internal/models"
)

const (
	Stage = "empathy-explanation"

	FallbackTitle = "Application Status"

	defaultMainFactor = "multiple financial factors"
	systemPrompt      = "You are a warm and supportive loan advisor. You reply with strictly valid JSON."
)

// FallbackExplanation is the fixed wording used when generation is unusable.
func FallbackExplanation(decision models.Decision) models.Explanation {
	return models.Explanation{
		Title:   FallbackTitle,
		Message: fmt.Sprintf("Loan decision: %s. We encourage you to review the improvement factors below.", decision),
	}
}

type Explainer struct {
	generator genai.Generator
	logger    logger.Logger
}

func NewExplainer(generator genai.Generator, log logger.Logger) *Explainer {
	return &Explainer{
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"component": "empathy-explainer"}),
	}
}

// Explain never fails: an error, unparseable output or a payload missing
// either field yields FallbackExplanation.
func (e *Explainer) Explain(ctx context.Context, result *models.EligibilityResult) models.Explanation {
	exp, err := e.generate(ctx, result)
	if err != nil {
		metrics.GenerationFallbacks.WithLabelValues(Stage).Inc()
		e.logger.Warn("explanation generation failed, using fallback", map[string]interface{}{
			"error":    err,
			"decision": result.Decision,
		})
		return FallbackExplanation(result.Decision)
	}
	return exp
}

func (e *Explainer) generate(ctx context.Context, result *models.EligibilityResult) (models.Explanation, error) {
	if e.generator == nil {
		return models.Explanation{}, errors.NewGenerationFailedError(Stage, genai.ErrGenerationFailed)
	}

	text, err := e.generator.Generate(ctx, genai.Request{
		Prompt:     buildPrompt(result),
		System:     systemPrompt,
		Structured: true,
	})
	if err != nil {
		return models.Explanation{}, errors.NewGenerationFailedError(Stage, err)
	}

	return parseExplanation(text)
}

func parseExplanation(text string) (models.Explanation, error) {
	raw := stripCodeFence(text)

	res, err := validation.ValidateDocument(validation.ExplanationSchema, raw)
	if err != nil {
		return models.Explanation{}, errors.NewGenerationFailedError(Stage, err)
	}
	if !res.Valid {
		return models.Explanation{}, errors.NewGenerationFailedError(Stage,
			fmt.Errorf("schema violation: %s", strings.Join(res.GetErrorMessages(), "; ")))
	}

	var exp models.Explanation
	if err := json.Unmarshal([]byte(raw), &exp); err != nil {
		return models.Explanation{}, errors.NewGenerationFailedError(Stage, err)
	}
	exp.Title = strings.TrimSpace(exp.Title)
	exp.Message = strings.TrimSpace(exp.Message)
	return exp, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add around JSON.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func buildPrompt(result *models.EligibilityResult) string {
	var parts []string

	parts = append(parts, "Current situation:")
	parts = append(parts, fmt.Sprintf("- Loan decision: %s", result.Decision))
	parts = append(parts, fmt.Sprintf("- Risk level: %.2f", result.RiskProbability))
	parts = append(parts, fmt.Sprintf("- Main factor: %s", result.ReasonOr(defaultMainFactor)))

	parts = append(parts, "\nTask:")
	parts = append(parts, "Return a JSON object with exactly two string fields:")
	parts = append(parts, `- "title": a short, 3-5 word encouraging header (for example "Great News!" or "Application Update")`)
	parts = append(parts, `- "message": a warm, human paragraph of at most 3 sentences explaining the situation kindly`)
	parts = append(parts, "\nOutput strictly valid JSON and nothing else.")

	return strings.Join(parts, "\n")
}
