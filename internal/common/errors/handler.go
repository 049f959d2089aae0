// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler turns a failed job into either a retried failure or a thrown BPMN error.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// JobOutcome is what HandleJobError will send for a failed job.
type JobOutcome struct {
	Error   *StandardError
	BPMN    *BPMNError
	Retry   bool
	Retries int32
}

// Resolve decides the outcome for err given the job's remaining retries.
func (h *ErrorHandler) Resolve(job entities.Job, err error) JobOutcome {
	stdErr := normalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	outcome := JobOutcome{Error: stdErr, BPMN: bpmnErr}

	// job.Retries includes the attempt that just failed
	remaining := job.Retries - 1
	if remaining > int32(bpmnErr.Retries) {
		remaining = int32(bpmnErr.Retries)
	}
	if remaining > 0 {
		outcome.Retry = true
		outcome.Retries = remaining
	}
	return outcome
}

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	outcome := h.Resolve(job, err)
	h.logError(job, outcome)

	if outcome.Retry {
		h.failJob(ctx, client, job, outcome)
		return
	}
	h.throwBPMNError(ctx, client, job, outcome.BPMN)
}

// normalizeError ensures we always have a StandardError
func normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, outcome JobOutcome) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(outcome.Retries).
		ErrorMessage(outcome.BPMN.Message)

	if vars, ok := encodeVariables(outcome.BPMN); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}

	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := encodeVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}

	_, _ = cmd.Send(ctx)
}

func encodeVariables(bpmnErr *BPMNError) (string, bool) {
	raw, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (h *ErrorHandler) logError(job entities.Job, outcome JobOutcome) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(outcome.Error.Code),
		"bpmnErrorCode":    outcome.BPMN.Code,
		"message":          outcome.BPMN.Message,
		"details":          outcome.Error.Details,
		"retry":            outcome.Retry,
		"retries":          outcome.Retries,
		"errorCategory":    GetErrorCategory(outcome.Error.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
