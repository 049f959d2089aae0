// internal/common/audit/recorder.go
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loan-advisor/internal/common/errors"
)

// Sink persists events. Append must write the whole event in one operation
// and be safe for concurrent use.
type Sink interface {
	Name() string
	Append(ctx context.Context, event Event) error
}

// Filter narrows a reporting query. Zero fields match everything.
type Filter struct {
	SessionID string
	EventType string
	AgentName string
	Limit     int

	// NewestFirst reverses the default oldest-first order.
	NewestFirst bool
}

const defaultQueryLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return defaultQueryLimit
	}
	return f.Limit
}

func (f Filter) matches(e Event) bool {
	return (f.SessionID == "" || f.SessionID == e.SessionID) &&
		(f.EventType == "" || f.EventType == e.EventType) &&
		(f.AgentName == "" || f.AgentName == e.AgentName)
}

// Querier is the read side used for reporting.
type Querier interface {
	Query(ctx context.Context, filter Filter) ([]Event, error)
	DecisionSummary(ctx context.Context) (map[string]int, error)
}

type Recorder struct {
	sink  Sink
	now   func() time.Time
	newID func() string
}

func NewRecorder(sink Sink) *Recorder {
	return &Recorder{
		sink:  sink,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Record stamps entry with a fresh event id and timestamp and appends it.
func (r *Recorder) Record(ctx context.Context, sessionID string, entry Entry) (Event, error) {
	event := Event{
		EventID:        r.newID(),
		SessionID:      sessionID,
		AgentName:      entry.AgentName(),
		EventType:      entry.EventType(),
		InputSnapshot:  entry.InputSnapshot(),
		OutputSnapshot: entry.OutputSnapshot(),
		Timestamp:      r.now(),
	}

	if err := r.sink.Append(ctx, event); err != nil {
		return event, errors.NewLoggingFailedError(event.EventType, err)
	}
	return event, nil
}
