// internal/common/audit/postgres.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"loan-advisor/internal/common/errors"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore is the primary audit sink. Expected schema:
//
//	CREATE TABLE agent_events (
//	    event_id        UUID PRIMARY KEY,
//	    session_id      UUID NOT NULL,
//	    agent_name      TEXT NOT NULL,
//	    event_type      TEXT NOT NULL,
//	    input_snapshot  JSONB NOT NULL,
//	    output_snapshot JSONB NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) (*PostgresStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid audit table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	input, err := json.Marshal(event.InputSnapshot)
	if err != nil {
		return fmt.Errorf("encode input snapshot: %w", err)
	}
	output, err := json.Marshal(event.OutputSnapshot)
	if err != nil {
		return fmt.Errorf("encode output snapshot: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (event_id, session_id, agent_name, event_type, input_snapshot, output_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		event.EventID, event.SessionID, event.AgentName, event.EventType,
		input, output, event.Timestamp)
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert_agent_event", err)
	}
	return nil
}

// Query returns matching events, oldest first unless filter.NewestFirst is set.
func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("session_id", filter.SessionID)
	add("event_type", filter.EventType)
	add("agent_name", filter.AgentName)

	query := fmt.Sprintf("SELECT event_id, session_id, agent_name, event_type, input_snapshot, output_snapshot, created_at FROM %s", s.table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	order := "ASC"
	if filter.NewestFirst {
		order = "DESC"
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(" ORDER BY created_at %s LIMIT $%d", order, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("query_agent_events", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e             Event
			input, output []byte
		)
		if err := rows.Scan(&e.EventID, &e.SessionID, &e.AgentName, &e.EventType, &input, &output, &e.Timestamp); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan_agent_event", err)
		}
		if err := json.Unmarshal(input, &e.InputSnapshot); err != nil {
			return nil, fmt.Errorf("decode input snapshot of %s: %w", e.EventID, err)
		}
		if err := json.Unmarshal(output, &e.OutputSnapshot); err != nil {
			return nil, fmt.Errorf("decode output snapshot of %s: %w", e.EventID, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("query_agent_events", err)
	}
	return events, nil
}

// DecisionSummary counts eligibility decisions by outcome.
func (s *PostgresStore) DecisionSummary(ctx context.Context) (map[string]int, error) {
	query := fmt.Sprintf(`SELECT output_snapshot->>'decision' AS decision, COUNT(*)
		FROM %s WHERE event_type = $1 GROUP BY 1`, s.table)

	rows, err := s.db.QueryContext(ctx, query, EventEligibilityDecision)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("decision_summary", err)
	}
	defer rows.Close()

	summary := map[string]int{}
	for rows.Next() {
		var (
			decision sql.NullString
			count    int
		)
		if err := rows.Scan(&decision, &count); err != nil {
			return nil, errors.NewQueryExecutionFailedError("decision_summary", err)
		}
		if decision.Valid {
			summary[decision.String] = count
		}
	}
	return summary, rows.Err()
}
