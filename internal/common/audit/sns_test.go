package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "loan-advisor/internal/common/errors"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, topicARN, subject string, payload interface{}, attrs map[string]string) (string, error) {
	args := m.Called(topicARN, subject, payload, attrs)
	return args.String(0), args.Error(1)
}

func TestSNSSink_PublishesSelectedEvents(t *testing.T) {
	pub := new(mockPublisher)
	event := Event{EventID: "e1", SessionID: "s1", AgentName: AgentOrchestrator, EventType: EventFinalResponse}

	pub.On("PublishJSON", "arn:topic", EventFinalResponse, event, map[string]string{
		"event_type": EventFinalResponse,
		"agent_name": AgentOrchestrator,
		"session_id": "s1",
	}).Return("msg-1", nil)

	sink := NewSNSSink(pub, "arn:topic", EventFinalResponse)
	require.NoError(t, sink.Append(context.Background(), event))
	require.NoError(t, sink.Append(context.Background(), Event{EventType: EventUserExplanation}))

	pub.AssertNumberOfCalls(t, "PublishJSON", 1)
	pub.AssertExpectations(t)
}

func TestSNSSink_NoFilterPublishesEverything(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("m", nil)

	sink := NewSNSSink(pub, "arn:topic")
	for _, et := range []string{EventEligibilityDecision, EventUserExplanation} {
		require.NoError(t, sink.Append(context.Background(), Event{EventType: et}))
	}
	pub.AssertNumberOfCalls(t, "PublishJSON", 2)
}

func TestSNSSink_Error(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("throttled"))

	err := NewSNSSink(pub, "arn:topic").Append(context.Background(), Event{EventType: EventFinalResponse})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
}
