package audit

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-advisor/internal/common/errors"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db, "agent_events")
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_RejectsUnsafeTableName(t *testing.T) {
	for _, name := range []string{"", "agent_events; DROP TABLE x", "Agent-Events", "1events"} {
		_, err := NewPostgresStore(nil, name)
		assert.Error(t, err, name)
	}
}

func TestPostgresStore_Append(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO agent_events (event_id, session_id, agent_name, event_type, input_snapshot, output_snapshot, created_at)")).
		WithArgs("evt-1", "sess-1", AgentOrchestrator, EventFinalResponse,
			[]byte(`{"monthly_income":20000}`), []byte(`{"status":"rejected"}`), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Append(context.Background(), Event{
		EventID:        "evt-1",
		SessionID:      "sess-1",
		AgentName:      AgentOrchestrator,
		EventType:      EventFinalResponse,
		InputSnapshot:  map[string]interface{}{"monthly_income": 20000},
		OutputSnapshot: map[string]interface{}{"status": "rejected"},
		Timestamp:      ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO agent_events").WillReturnError(errors.New("connection refused"))

	err := store.Append(context.Background(), Event{EventID: "evt-1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecutionFailed))
}

func TestPostgresStore_Query(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"event_id", "session_id", "agent_name", "event_type", "input_snapshot", "output_snapshot", "created_at"}).
		AddRow("evt-1", "sess-1", AgentEligibility, EventEligibilityDecision, []byte(`{"loan_amount":300000}`), []byte(`{"decision":"rejected"}`), ts).
		AddRow("evt-2", "sess-1", AgentOrchestrator, EventFinalResponse, []byte(`{}`), []byte(`{"status":"rejected"}`), ts.Add(time.Second))

	mock.ExpectQuery(regexp.QuoteMeta("FROM agent_events WHERE session_id = $1 AND agent_name = $2 ORDER BY created_at ASC LIMIT $3")).
		WithArgs("sess-1", AgentEligibility, 10).
		WillReturnRows(rows)

	events, err := store.Query(context.Background(), Filter{SessionID: "sess-1", AgentName: AgentEligibility, Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].EventID)
	assert.Equal(t, float64(300000), events[0].InputSnapshot["loan_amount"])
	assert.Equal(t, "rejected", events[1].OutputSnapshot["status"])
	assert.Equal(t, ts.Add(time.Second), events[1].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryWithoutFilterUsesDefaultLimit(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_id, session_id, agent_name, event_type, input_snapshot, output_snapshot, created_at FROM agent_events ORDER BY created_at ASC LIMIT $1")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	events, err := store.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryNewestFirst(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM agent_events WHERE event_type = $1 ORDER BY created_at DESC LIMIT $2")).
		WithArgs(EventEligibilityDecision, 50).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	_, err := store.Query(context.Background(), Filter{EventType: EventEligibilityDecision, Limit: 50, NewestFirst: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DecisionSummary(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT output_snapshot->>'decision' AS decision, COUNT(*)")).
		WithArgs(EventEligibilityDecision).
		WillReturnRows(sqlmock.NewRows([]string{"decision", "count"}).
			AddRow("approved", 12).
			AddRow("rejected", 4).
			AddRow(nil, 1))

	summary, err := store.DecisionSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"approved": 12, "rejected": 4}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}
