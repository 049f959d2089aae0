// internal/workers/loan/orchestrator/config.go
package orchestrator

import (
	"time"

	"loan-advisor/internal/common/config"
)

type Config struct {
	// StrictAudit makes an audit append failure fail the whole run.
	StrictAudit bool
	Timeout     time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	wcfg := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		StrictAudit: cfg.Audit.Strict,
		Timeout:     config.GetDuration(wcfg.Timeout),
	}
}
