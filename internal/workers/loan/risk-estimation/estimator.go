// internal/workers/loan/risk-estimation/estimator.go
package riskestimation

import (
	"context"

	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/models"
)

// Estimator returns a probability of default in [0,1].
type Estimator interface {
	Estimate(ctx context.Context, app *models.LoanApplication) (float64, error)
}

// Predictor scores a feature row. *Model is the production implementation.
type Predictor interface {
	Predict(row FeatureRow) (float64, error)
}

type ModelEstimator struct {
	model  Predictor
	logger logger.Logger
}

func NewModelEstimator(model Predictor, log logger.Logger) *ModelEstimator {
	return &ModelEstimator{
		model:  model,
		logger: log.WithFields(map[string]interface{}{"component": "risk-estimator"}),
	}
}

func (e *ModelEstimator) Estimate(ctx context.Context, app *models.LoanApplication) (float64, error) {
	row, err := BuildFeatures(app)
	if err != nil {
		return 0, err
	}

	p, err := e.model.Predict(row)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("risk estimated", map[string]interface{}{
		"probability": p,
	})
	return p, nil
}
