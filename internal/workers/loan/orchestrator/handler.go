// internal/workers/loan/orchestrator/handler.go
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/metrics"
	"loan-advisor/internal/common/observability"
	"loan-advisor/internal/common/validation"
	"loan-advisor/internal/models"
)

const (
	TaskType = "process-loan-application"
)

// Processor is satisfied by *Orchestrator.
type Processor interface {
	Process(ctx context.Context, app *models.LoanApplication) (*models.FinalResponse, error)
}

// Handler runs one loan application per activated job.
type Handler struct {
	config       *Config
	processor    Processor
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(config *Config, processor Processor, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		processor:    processor,
		errorHandler: errors.NewErrorHandler(l),
		obs:          obs,
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, job.Variables)
	if err != nil {
		code := "INTERNAL_ERROR"
		if stdErr, ok := errors.AsStandardError(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.obs.RecordJob(ctx, "failed", time.Since(start))
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJob(ctx, "completed", time.Since(start))
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, variables string) (*models.FinalResponse, error) {
	result, err := validation.ValidateDocument(validation.LoanApplicationSchema, variables)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var app models.LoanApplication
	if err := json.Unmarshal([]byte(variables), &app); err != nil {
		return nil, errors.NewInvalidInputError("parse input: " + err.Error())
	}

	return h.processor.Process(ctx, &app)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *models.FinalResponse) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":    job.Key,
		"sessionId": output.SessionID,
		"status":    output.Status,
	})
}

// Execute exposes execute for tests and local tools.
func (h *Handler) Execute(ctx context.Context, variables string) (*models.FinalResponse, error) {
	return h.execute(ctx, variables)
}
