// internal/common/audit/fanout.go
package audit

import (
	"context"

	"loan-advisor/internal/common/logger"
	"loan-advisor/internal/common/metrics"
)

// Fanout writes to a primary sink and then to best-effort secondaries.
// Only a primary failure is returned.
type Fanout struct {
	primary     Sink
	secondaries []Sink
	logger      logger.Logger
}

func NewFanout(primary Sink, log logger.Logger, secondaries ...Sink) *Fanout {
	return &Fanout{
		primary:     primary,
		secondaries: secondaries,
		logger:      log.WithFields(map[string]interface{}{"component": "audit-fanout"}),
	}
}

func (f *Fanout) Name() string { return f.primary.Name() }

func (f *Fanout) Append(ctx context.Context, event Event) error {
	if err := f.primary.Append(ctx, event); err != nil {
		metrics.AuditFailures.WithLabelValues(f.primary.Name()).Inc()
		return err
	}

	for _, s := range f.secondaries {
		if err := s.Append(ctx, event); err != nil {
			metrics.AuditFailures.WithLabelValues(s.Name()).Inc()
			f.logger.Warn("secondary audit sink failed", map[string]interface{}{
				"sink":      s.Name(),
				"eventId":   event.EventID,
				"eventType": event.EventType,
				"error":     err,
			})
		}
	}
	return nil
}
