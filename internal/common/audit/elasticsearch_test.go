package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-advisor/internal/common/errors"
)

func newTestESStore(t *testing.T, handler http.HandlerFunc) *ElasticsearchStore {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewElasticsearchStore(client, "agent-events")
}

func TestElasticsearchStore_Append(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent-events/_create/evt-1", r.URL.Path)

		var doc Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "sess-1", doc.SessionID)
		assert.Equal(t, EventUserExplanation, doc.EventType)
		assert.Equal(t, ts, doc.Timestamp)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"_id":"evt-1","result":"created"}`)
	})

	err := store.Append(context.Background(), Event{
		EventID: "evt-1", SessionID: "sess-1", AgentName: AgentEmpathy, EventType: EventUserExplanation,
		InputSnapshot: map[string]interface{}{}, OutputSnapshot: map[string]interface{}{}, Timestamp: ts,
	})
	assert.NoError(t, err)
}

func TestElasticsearchStore_AppendConflict(t *testing.T) {
	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":{"type":"version_conflict_engine_exception"}}`)
	})

	err := store.Append(context.Background(), Event{EventID: "evt-1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
}

func TestElasticsearchStore_Query(t *testing.T) {
	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent-events/_search", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5), body["size"])
		filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
		assert.Len(t, filters, 2)
		assert.Contains(t, filters, map[string]interface{}{"term": map[string]interface{}{"session_id": "sess-1"}})
		sort := body["sort"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"order": "asc"}, sort["timestamp"])

		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{
			"event_id":"evt-9","session_id":"sess-1","agent_name":"EligibilityAgent",
			"event_type":"eligibility_decision","input_snapshot":{},"output_snapshot":{"decision":"approved"},
			"timestamp":"2026-01-02T03:04:05Z"}}]}}`)
	})

	events, err := store.Query(context.Background(), Filter{SessionID: "sess-1", EventType: EventEligibilityDecision, Limit: 5})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-9", events[0].EventID)
	assert.Equal(t, "approved", events[0].OutputSnapshot["decision"])
}

func TestElasticsearchStore_QueryNewestFirst(t *testing.T) {
	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sort := body["sort"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"order": "desc"}, sort["timestamp"])

		_, _ = io.WriteString(w, `{"hits":{"hits":[]}}`)
	})

	events, err := store.Query(context.Background(), Filter{EventType: EventEligibilityDecision, NewestFirst: true})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestElasticsearchStore_EnsureIndexMapsKeywords(t *testing.T) {
	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/agent-events", r.URL.Path)

		var body struct {
			Mappings struct {
				Properties map[string]struct {
					Type       string `json:"type"`
					Properties map[string]struct {
						Type string `json:"type"`
					} `json:"properties"`
				} `json:"properties"`
			} `json:"mappings"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		props := body.Mappings.Properties
		for _, field := range []string{"event_id", "session_id", "agent_name", "event_type"} {
			assert.Equal(t, "keyword", props[field].Type, field)
		}
		assert.Equal(t, "date", props["timestamp"].Type)
		assert.Equal(t, "keyword", props["output_snapshot"].Properties["decision"].Type)

		_, _ = io.WriteString(w, `{"acknowledged":true,"index":"agent-events"}`)
	})

	assert.NoError(t, store.EnsureIndex(context.Background()))
}

func TestElasticsearchStore_EnsureIndex(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"already exists", http.StatusBadRequest, `{"error":{"type":"resource_already_exists_exception"},"status":400}`, false},
		{"mapping rejected", http.StatusBadRequest, `{"error":{"type":"mapper_parsing_exception"},"status":400}`, true},
		{"cluster unavailable", http.StatusServiceUnavailable, `{"error":{"type":"cluster_block_exception"},"status":503}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := store.EnsureIndex(context.Background())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
		})
	}
}

func TestElasticsearchStore_DecisionSummary(t *testing.T) {
	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"hits":{"hits":[]},"aggregations":{"decisions":{"buckets":[
			{"key":"approved","doc_count":7},{"key":"conditional","doc_count":2}]}}}`)
	})

	summary, err := store.DecisionSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"approved": 7, "conditional": 2}, summary)
}

func TestElasticsearchStore_SearchError(t *testing.T) {
	store := newTestESStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
	})

	_, err := store.Query(context.Background(), Filter{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
}
