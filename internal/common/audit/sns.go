// internal/common/audit/sns.go
package audit

import (
	"context"

	"loan-advisor/internal/common/errors"
)

// Publisher is satisfied by *aws.SNSClient.
type Publisher interface {
	PublishJSON(ctx context.Context, topicARN, subject string, payload interface{}, attrs map[string]string) (string, error)
}

// SNSSink publishes selected event types to a topic for downstream consumers.
type SNSSink struct {
	publisher  Publisher
	topicARN   string
	eventTypes map[string]bool
}

// NewSNSSink forwards only the listed event types; none means all.
func NewSNSSink(publisher Publisher, topicARN string, eventTypes ...string) *SNSSink {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &SNSSink{publisher: publisher, topicARN: topicARN, eventTypes: types}
}

func (s *SNSSink) Name() string { return "sns" }

func (s *SNSSink) Append(ctx context.Context, event Event) error {
	if len(s.eventTypes) > 0 && !s.eventTypes[event.EventType] {
		return nil
	}
	_, err := s.publisher.PublishJSON(ctx, s.topicARN, event.EventType, event, map[string]string{
		"event_type": event.EventType,
		"agent_name": event.AgentName,
		"session_id": event.SessionID,
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}
	return nil
}
