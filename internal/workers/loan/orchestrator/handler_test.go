package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loan-advisor/internal/common/config"
	apperrors "loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/models"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(ctx context.Context, app *models.LoanApplication) (*models.FinalResponse, error) {
	args := m.Called(app)
	resp, _ := args.Get(0).(*models.FinalResponse)
	return resp, args.Error(1)
}

func newTestHandler(p Processor) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, p, nil, logger.NewNoOpLogger())
}

func TestHandler_Execute_ValidVariables(t *testing.T) {
	processor := new(mockProcessor)
	want := &models.FinalResponse{SessionID: "s-1", Status: models.DecisionApproved}
	processor.On("Process", &models.LoanApplication{
		MonthlyIncome: 100000, ExistingEMI: 0, LoanAmount: 200000, TenureMonths: 36,
	}).Return(want, nil)

	got, err := newTestHandler(processor).Execute(context.Background(),
		`{"monthly_income":100000,"existing_emi":0,"loan_amount":200000,"tenure_months":36,"applicantRef":"A-17"}`)

	require.NoError(t, err)
	assert.Equal(t, want, got)
	processor.AssertExpectations(t)
}

func TestHandler_Execute_RejectsBadVariables(t *testing.T) {
	tests := []struct {
		name      string
		variables string
	}{
		{"missing tenure", `{"monthly_income":30000,"existing_emi":0,"loan_amount":100000}`},
		{"negative emi", `{"monthly_income":30000,"existing_emi":-1,"loan_amount":100000,"tenure_months":12}`},
		{"zero income", `{"monthly_income":0,"existing_emi":0,"loan_amount":100000,"tenure_months":12}`},
		{"string amount", `{"monthly_income":30000,"existing_emi":0,"loan_amount":"lots","tenure_months":12}`},
		{"fractional tenure", `{"monthly_income":30000,"existing_emi":0,"loan_amount":100000,"tenure_months":12.5}`},
		{"malformed json", `{"monthly_income":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := new(mockProcessor)

			_, err := newTestHandler(processor).Execute(context.Background(), tt.variables)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput), err.Error())
			processor.AssertNotCalled(t, "Process", mock.Anything)
		})
	}
}

func TestHandler_Execute_PropagatesPipelineFailure(t *testing.T) {
	processor := new(mockProcessor)
	processor.On("Process", mock.Anything).Return(nil, apperrors.NewPipelineFailedError("s-2", assert.AnError))

	_, err := newTestHandler(processor).Execute(context.Background(),
		`{"monthly_income":30000,"existing_emi":0,"loan_amount":100000,"tenure_months":12}`)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePipelineFailed))
}

func TestLoadConfig_UsesWorkerTimeoutAndAuditMode(t *testing.T) {
	cfg := loadTestServiceConfig()
	got := LoadConfig(cfg)

	assert.True(t, got.StrictAudit)
	assert.Equal(t, 45*time.Second, got.Timeout)
}

func loadTestServiceConfig() *config.Config {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, MaxJobsActive: 5, Timeout: 45000, MaxRetries: 2},
	}}
	cfg.Audit.Strict = true
	return cfg
}
