// Package audit records an append-only trail of pipeline stage events per session.
package audit

import (
	"time"

	"loan-advisor/internal/models"
)

// Agent names.
const (
	AgentEligibility       = "EligibilityAgent"
	AgentCreditImprovement = "CreditImprovementAgent"
	AgentEmpathy           = "EmpathyAgent"
	AgentOrchestrator      = "OrchestratorAgent"
)

// Event types.
const (
	EventEligibilityDecision      = "eligibility_decision"
	EventPersonalizedCreditAdvice = "personalized_credit_advice"
	EventUserExplanation          = "user_explanation"
	EventFinalResponse            = "final_response"
)

// Event is one immutable audit record.
type Event struct {
	EventID        string                 `json:"event_id"`
	SessionID      string                 `json:"session_id"`
	AgentName      string                 `json:"agent_name"`
	EventType      string                 `json:"event_type"`
	InputSnapshot  map[string]interface{} `json:"input_snapshot"`
	OutputSnapshot map[string]interface{} `json:"output_snapshot"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Entry is what a stage hands to the recorder. Each implementation fixes its
// agent name and event type.
type Entry interface {
	AgentName() string
	EventType() string
	InputSnapshot() map[string]interface{}
	OutputSnapshot() map[string]interface{}
}

type EligibilityDecision struct {
	Application models.LoanApplication
	Result      models.EligibilityResult
}

func (EligibilityDecision) AgentName() string { return AgentEligibility }
func (EligibilityDecision) EventType() string { return EventEligibilityDecision }

func (e EligibilityDecision) InputSnapshot() map[string]interface{} {
	return e.Application.Snapshot()
}

func (e EligibilityDecision) OutputSnapshot() map[string]interface{} {
	var reason interface{}
	if e.Result.Reason != nil {
		reason = *e.Result.Reason
	}
	return map[string]interface{}{
		"decision":          string(e.Result.Decision),
		"eligibility_score": e.Result.EligibilityScore,
		"risk_probability":  e.Result.RiskProbability,
		"dti_ratio":         e.Result.DTIRatio,
		"reason":            reason,
	}
}

type PersonalizedCreditAdvice struct {
	Factors []models.ImprovementFactor
	Advice  string
}

func (PersonalizedCreditAdvice) AgentName() string { return AgentCreditImprovement }
func (PersonalizedCreditAdvice) EventType() string { return EventPersonalizedCreditAdvice }

func (e PersonalizedCreditAdvice) InputSnapshot() map[string]interface{} {
	factors := make([]string, len(e.Factors))
	for i, f := range e.Factors {
		factors[i] = string(f)
	}
	return map[string]interface{}{"factors": factors}
}

func (e PersonalizedCreditAdvice) OutputSnapshot() map[string]interface{} {
	return map[string]interface{}{"advice": e.Advice}
}

type UserExplanation struct {
	Decision        models.Decision
	RiskProbability float64
	Explanation     models.Explanation
}

func (UserExplanation) AgentName() string { return AgentEmpathy }
func (UserExplanation) EventType() string { return EventUserExplanation }

func (e UserExplanation) InputSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"decision":         string(e.Decision),
		"risk_probability": e.RiskProbability,
	}
}

func (e UserExplanation) OutputSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"title":   e.Explanation.Title,
		"message": e.Explanation.Message,
	}
}

type FinalResponse struct {
	Application models.LoanApplication
	Status      models.Decision
}

func (FinalResponse) AgentName() string { return AgentOrchestrator }
func (FinalResponse) EventType() string { return EventFinalResponse }

func (e FinalResponse) InputSnapshot() map[string]interface{} {
	return e.Application.Snapshot()
}

func (e FinalResponse) OutputSnapshot() map[string]interface{} {
	return map[string]interface{}{"status": string(e.Status)}
}
