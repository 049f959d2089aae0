// internal/common/audit/elasticsearch.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"loan-advisor/internal/common/errors"
)

// ElasticsearchStore indexes events for reporting. Documents are created with
// the event id as _id, so a replayed event is rejected instead of overwritten.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchStore(client *elasticsearch.Client, index string) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index}
}

func (s *ElasticsearchStore) Name() string { return "elasticsearch" }

// indexMapping keeps the filtered and aggregated fields as keywords. Dynamic
// mapping would index them as analysed text, which splits session ids at
// hyphens, lowercases agent names and rejects terms aggregations.
var indexMapping = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"event_id":       map[string]interface{}{"type": "keyword"},
			"session_id":     map[string]interface{}{"type": "keyword"},
			"agent_name":     map[string]interface{}{"type": "keyword"},
			"event_type":     map[string]interface{}{"type": "keyword"},
			"timestamp":      map[string]interface{}{"type": "date"},
			"input_snapshot": map[string]interface{}{"type": "object"},
			"output_snapshot": map[string]interface{}{
				"properties": map[string]interface{}{
					"decision": map[string]interface{}{"type": "keyword"},
				},
			},
		},
	},
}

// EnsureIndex creates the index with its keyword mapping. An index that
// already exists is left as is.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	body, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("encode index mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewSearchQueryFailedError("create_index", err)
	}
	defer res.Body.Close()

	if !res.IsError() {
		return nil
	}

	var failure struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&failure); err == nil && failure.Error.Type == "resource_already_exists_exception" {
		return nil
	}
	return errors.NewSearchQueryFailedError("create_index", fmt.Errorf("create index failed: %s", res.Status()))
}

func (s *ElasticsearchStore) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req := esapi.CreateRequest{
		Index:      s.index,
		DocumentID: event.EventID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewSearchQueryFailedError("index_event", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError("index_event", fmt.Errorf("index failed: %s", res.String()))
	}
	return nil
}

func (s *ElasticsearchStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	var terms []interface{}
	for field, value := range map[string]string{
		"session_id": filter.SessionID,
		"event_type": filter.EventType,
		"agent_name": filter.AgentName,
	} {
		if value != "" {
			terms = append(terms, map[string]interface{}{"term": map[string]interface{}{field: value}})
		}
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(terms) > 0 {
		query = map[string]interface{}{"bool": map[string]interface{}{"filter": terms}}
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source Event `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	order := "asc"
	if filter.NewestFirst {
		order = "desc"
	}
	if err := s.search(ctx, "query_events", map[string]interface{}{
		"query": query,
		"size":  filter.limit(),
		"sort":  []interface{}{map[string]interface{}{"timestamp": map[string]interface{}{"order": order}}},
	}, &out); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		events = append(events, h.Source)
	}
	return events, nil
}

func (s *ElasticsearchStore) DecisionSummary(ctx context.Context) (map[string]int, error) {
	var out struct {
		Aggregations struct {
			Decisions struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int    `json:"doc_count"`
				} `json:"buckets"`
			} `json:"decisions"`
		} `json:"aggregations"`
	}
	if err := s.search(ctx, "decision_summary", map[string]interface{}{
		"size":  0,
		"query": map[string]interface{}{"term": map[string]interface{}{"event_type": EventEligibilityDecision}},
		"aggs": map[string]interface{}{
			"decisions": map[string]interface{}{"terms": map[string]interface{}{"field": "output_snapshot.decision"}},
		},
	}, &out); err != nil {
		return nil, err
	}

	summary := map[string]int{}
	for _, b := range out.Aggregations.Decisions.Buckets {
		summary[b.Key] = b.DocCount
	}
	return summary, nil
}

func (s *ElasticsearchStore) search(ctx context.Context, queryType string, body map[string]interface{}, dest interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.NewSearchQueryFailedError(queryType, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(queryType, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError(queryType, fmt.Errorf("search failed: %s", res.String()))
	}
	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return errors.NewSearchQueryFailedError(queryType, err)
	}
	return nil
}
