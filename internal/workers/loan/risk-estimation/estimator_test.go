package riskestimation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/models"
)

// ==========================
// Test doubles
// ==========================

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(row FeatureRow) (float64, error) {
	args := m.Called(row)
	return args.Get(0).(float64), args.Error(1)
}

type countingEstimator struct {
	calls int
	p     float64
	err   error
}

func (c *countingEstimator) Estimate(ctx context.Context, app *models.LoanApplication) (float64, error) {
	c.calls++
	return c.p, c.err
}

func testApplication() *models.LoanApplication {
	return &models.LoanApplication{MonthlyIncome: 60000, ExistingEMI: 5000, LoanAmount: 240000, TenureMonths: 24}
}

// ==========================
// ModelEstimator
// ==========================

func TestModelEstimator_PassesTrainingOrderedRow(t *testing.T) {
	predictor := new(mockPredictor)
	predictor.On("Predict", mock.MatchedBy(func(row FeatureRow) bool {
		if len(row) != len(TrainingColumns) {
			return false
		}
		for i, col := range TrainingColumns {
			if row[i].Column != col {
				return false
			}
		}
		return true
	})).Return(0.25, nil)

	p, err := NewModelEstimator(predictor, logger.NewNoOpLogger()).Estimate(context.Background(), testApplication())
	require.NoError(t, err)
	assert.Equal(t, 0.25, p)
	predictor.AssertExpectations(t)
}

func TestModelEstimator_ZeroIncomeNeverReachesModel(t *testing.T) {
	predictor := new(mockPredictor)

	_, err := NewModelEstimator(predictor, logger.NewNoOpLogger()).Estimate(context.Background(), &models.LoanApplication{LoanAmount: 1000, TenureMonths: 12})
	require.Error(t, err)
	predictor.AssertNotCalled(t, "Predict", mock.Anything)
}

func TestModelEstimator_PropagatesModelError(t *testing.T) {
	predictor := new(mockPredictor)
	predictor.On("Predict", mock.Anything).Return(0.0, errors.New("bad row"))

	_, err := NewModelEstimator(predictor, logger.NewNoOpLogger()).Estimate(context.Background(), testApplication())
	assert.EqualError(t, err, "bad row")
}

// ==========================
// CachedEstimator
// ==========================

func TestCachedEstimator_MissThenHit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingEstimator{p: 0.42}

	cached := NewCachedEstimator(inner, rdb, "risk:v1:", time.Minute, logger.NewNoOpLogger())

	first, err := cached.Estimate(context.Background(), testApplication())
	require.NoError(t, err)
	second, err := cached.Estimate(context.Background(), testApplication())
	require.NoError(t, err)

	assert.Equal(t, 0.42, first)
	assert.Equal(t, 0.42, second)
	assert.Equal(t, 1, inner.calls)

	stored, err := mr.Get("risk:v1:60000:240000")
	require.NoError(t, err)
	assert.Equal(t, "0.42", stored)
	assert.Equal(t, time.Minute, mr.TTL("risk:v1:60000:240000"))
}

func TestCachedEstimator_RedisDownFallsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("risk:v1:60000:240000").SetErr(errors.New("connection refused"))
	mock.ExpectSet("risk:v1:60000:240000", "0.7", time.Minute).SetErr(errors.New("connection refused"))

	inner := &countingEstimator{p: 0.7}
	p, err := NewCachedEstimator(inner, rdb, "risk:v1:", time.Minute, logger.NewNoOpLogger()).Estimate(context.Background(), testApplication())

	require.NoError(t, err)
	assert.Equal(t, 0.7, p)
	assert.Equal(t, 1, inner.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedEstimator_CorruptEntryIsRecomputed(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("risk:v1:60000:240000", "not-a-number"))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingEstimator{p: 0.1}

	p, err := NewCachedEstimator(inner, rdb, "risk:v1:", time.Minute, logger.NewNoOpLogger()).Estimate(context.Background(), testApplication())
	require.NoError(t, err)
	assert.Equal(t, 0.1, p)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEstimator_EstimatorErrorIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingEstimator{err: errors.New("model down")}

	_, err := NewCachedEstimator(inner, rdb, "risk:v1:", time.Minute, logger.NewNoOpLogger()).Estimate(context.Background(), testApplication())
	require.Error(t, err)
	assert.False(t, mr.Exists("risk:v1:60000:240000"))
}
