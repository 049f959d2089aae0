// internal/workers/loan/risk-estimation/config.go
package riskestimation

import (
	"time"

	"loan-advisor/internal/common/config"
)

type Config struct {
	ArtifactPath string
	CacheEnabled bool
	CacheTTL     time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		ArtifactPath: cfg.Model.ArtifactPath,
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     config.GetDuration(cfg.Cache.RiskTTL),
	}
}
