// internal/workers/loan/risk-estimation/cache.go
package riskestimation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/metrics"
	"loan-advisor/internal/models"
)

// CachedEstimator memoises probabilities in Redis. A cache failure falls
// through to the wrapped estimator and is never returned to the caller.
type CachedEstimator struct {
	next   Estimator
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedEstimator keys entries by prefix plus the observed features; put the
// model version in prefix so a new artifact does not read stale probabilities.
func NewCachedEstimator(next Estimator, rdb *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *CachedEstimator {
	return &CachedEstimator{
		next:   next,
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "risk-cache"}),
	}
}

func (c *CachedEstimator) cacheKey(app *models.LoanApplication) string {
	return fmt.Sprintf("%s%d:%d", c.prefix, app.MonthlyIncome, app.LoanAmount)
}

func (c *CachedEstimator) Estimate(ctx context.Context, app *models.LoanApplication) (float64, error) {
	key := c.cacheKey(app)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		if p, perr := strconv.ParseFloat(val, 64); perr == nil {
			metrics.RiskCacheLookups.WithLabelValues("hit").Inc()
			return p, nil
		}
		metrics.RiskCacheLookups.WithLabelValues("error").Inc()
	case err == redis.Nil:
		metrics.RiskCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.RiskCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("risk cache read failed", map[string]interface{}{"key": key, "error": err})
	}

	p, err := c.next.Estimate(ctx, app)
	if err != nil {
		return 0, err
	}

	if err := c.redis.Set(ctx, key, strconv.FormatFloat(p, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Warn("risk cache write failed", map[string]interface{}{"key": key, "error": err})
	}
	return p, nil
}
