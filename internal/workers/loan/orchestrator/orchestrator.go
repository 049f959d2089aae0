// internal/workers/loan/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"loan-advisor/internal/common/audit"
	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/metrics"
	"loan-advisor/internal/models"
)

const tracerName = "loan-advisor/orchestrator"

// Pipeline stages, used for spans, metrics and diagnostics.
const (
	StageEvaluate = "evaluate"
	StageAdvise   = "advise"
	StageExplain  = "explain"
	StageFinalize = "finalize"
)

type Evaluator interface {
	Evaluate(ctx context.Context, app *models.LoanApplication) (*models.EligibilityResult, error)
}

type Advisor interface {
	Factors(app *models.LoanApplication, result *models.EligibilityResult) []models.ImprovementFactor
	Advice(ctx context.Context, factors []models.ImprovementFactor, app *models.LoanApplication) string
}

type Explainer interface {
	Explain(ctx context.Context, result *models.EligibilityResult) models.Explanation
}

type Recorder interface {
	Record(ctx context.Context, sessionID string, entry audit.Entry) (audit.Event, error)
}

// Dependencies are the collaborators of one Orchestrator. Tracer may be nil.
type Dependencies struct {
	Evaluator   Evaluator
	Advisor     Advisor
	Explainer   Explainer
	Recorder    Recorder
	Diagnostics logger.Diagnostics
	Tracer      trace.Tracer
}

// Orchestrator runs the loan pipeline. It holds no per-run state and is safe
// for concurrent use.
type Orchestrator struct {
	config *Config
	deps   Dependencies
	logger logger.Logger

	newSessionID func() string
}

func New(cfg *Config, deps Dependencies, log logger.Logger) *Orchestrator {
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(tracerName)
	}
	return &Orchestrator{
		config:       cfg,
		deps:         deps,
		logger:       log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		newSessionID: uuid.NewString,
	}
}

// Process validates app and runs it through the pipeline. Only INVALID_INPUT
// and PIPELINE_FAILED errors are returned.
func (o *Orchestrator) Process(ctx context.Context, app *models.LoanApplication) (resp *models.FinalResponse, err error) {
	if vErr := app.Validate(); vErr != nil {
		metrics.PipelineRuns.WithLabelValues("invalid_input").Inc()
		return nil, errors.NewInvalidInputError(vErr.Error())
	}

	sessionID := o.newSessionID()
	ctx, span := o.deps.Tracer.Start(ctx, "loan.pipeline", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	stage := StageEvaluate
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, o.fail(span, sessionID, stage, fmt.Errorf("panic: %v", r))
		}
	}()

	resp, err = o.run(ctx, sessionID, app, &stage)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeInvalidInput) {
			metrics.PipelineRuns.WithLabelValues("invalid_input").Inc()
			return nil, err
		}
		return nil, o.fail(span, sessionID, stage, err)
	}

	metrics.PipelineRuns.WithLabelValues("ok").Inc()
	metrics.Decisions.WithLabelValues(string(resp.Status)).Inc()
	span.SetAttributes(attribute.String("loan.decision", string(resp.Status)))
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, sessionID string, app *models.LoanApplication, stage *string) (*models.FinalResponse, error) {
	log := o.logger.WithFields(map[string]interface{}{"sessionId": sessionID})

	// Evaluated
	var result *models.EligibilityResult
	err := o.stage(ctx, StageEvaluate, stage, func(ctx context.Context) error {
		var err error
		result, err = o.deps.Evaluator.Evaluate(ctx, app)
		if err != nil {
			return err
		}
		return o.record(ctx, log, sessionID, audit.EligibilityDecision{Application: *app, Result: *result})
	})
	if err != nil {
		return nil, err
	}

	// AdviceGenerated | SkipAdvice
	var advice *string
	if result.Decision.NeedsAdvice() {
		err = o.stage(ctx, StageAdvise, stage, func(ctx context.Context) error {
			factors := o.deps.Advisor.Factors(app, result)
			text := o.deps.Advisor.Advice(ctx, factors, app)
			advice = &text
			return o.record(ctx, log, sessionID, audit.PersonalizedCreditAdvice{Factors: factors, Advice: text})
		})
		if err != nil {
			return nil, err
		}
	}

	// Explained
	var explanation models.Explanation
	err = o.stage(ctx, StageExplain, stage, func(ctx context.Context) error {
		explanation = o.deps.Explainer.Explain(ctx, result)
		return o.record(ctx, log, sessionID, audit.UserExplanation{
			Decision:        result.Decision,
			RiskProbability: result.RiskProbability,
			Explanation:     explanation,
		})
	})
	if err != nil {
		return nil, err
	}

	// Logged
	err = o.stage(ctx, StageFinalize, stage, func(ctx context.Context) error {
		return o.record(ctx, log, sessionID, audit.FinalResponse{Application: *app, Status: result.Decision})
	})
	if err != nil {
		return nil, err
	}

	log.Info("loan application processed", map[string]interface{}{
		"decision":    result.Decision,
		"score":       result.EligibilityScore,
		"adviceGiven": advice != nil,
	})

	return &models.FinalResponse{
		SessionID:                     sessionID,
		Status:                        result.Decision,
		Title:                         explanation.Title,
		Message:                       explanation.Message,
		Eligibility:                   *result,
		PersonalizedImprovementAdvice: advice,
	}, nil
}

// stage runs fn inside its own span and records its duration.
func (o *Orchestrator) stage(ctx context.Context, name string, current *string, fn func(context.Context) error) error {
	*current = name
	ctx, span := o.deps.Tracer.Start(ctx, "loan."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// record appends entry. Failures are logged and swallowed unless StrictAudit is set.
func (o *Orchestrator) record(ctx context.Context, log logger.Logger, sessionID string, entry audit.Entry) error {
	if _, err := o.deps.Recorder.Record(ctx, sessionID, entry); err != nil {
		if o.config.StrictAudit {
			return err
		}
		log.Warn("audit append failed, continuing", map[string]interface{}{
			"eventType": entry.EventType(),
			"error":     err,
		})
	}
	return nil
}

func (o *Orchestrator) fail(span trace.Span, sessionID, stage string, cause error) error {
	metrics.PipelineRuns.WithLabelValues("failed").Inc()
	span.RecordError(cause)
	span.SetStatus(codes.Error, "pipeline failed")

	if o.deps.Diagnostics != nil {
		o.deps.Diagnostics.Capture(sessionID, cause, map[string]interface{}{"stage": stage})
	}
	o.logger.Error("loan pipeline failed", map[string]interface{}{
		"sessionId": sessionID,
		"stage":     stage,
		"error":     cause,
	})
	return errors.NewPipelineFailedError(sessionID, cause)
}
