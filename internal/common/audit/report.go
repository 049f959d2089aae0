// internal/common/audit/report.go
package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"loan-advisor/internal/common/errors"
	"loan-advisor/internal/common/logger"
)

// NewReportHandler serves read-only reporting over the audit trail:
//
//	GET /events?session_id=&event_type=&agent_name=&limit=&order=asc|desc
//	GET /sessions/{sessionID}
//	GET /summary
func NewReportHandler(q Querier, log logger.Logger) http.Handler {
	h := &reportHandler{querier: q, logger: log.WithFields(map[string]interface{}{"component": "audit-report"})}

	r := chi.NewRouter()
	r.Get("/events", h.events)
	r.Get("/sessions/{sessionID}", h.session)
	r.Get("/summary", h.summary)
	return r
}

type reportHandler struct {
	querier Querier
	logger  logger.Logger
}

func (h *reportHandler) events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		SessionID: q.Get("session_id"),
		EventType: q.Get("event_type"),
		AgentName: q.Get("agent_name"),
	}
	switch q.Get("order") {
	case "", "asc":
	case "desc":
		filter.NewestFirst = true
	default:
		writeReportError(w, http.StatusBadRequest, errors.NewInvalidInputError("order must be asc or desc"))
		return
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeReportError(w, http.StatusBadRequest, errors.NewInvalidInputError("limit must be an integer"))
			return
		}
		filter.Limit = limit
	}
	h.query(w, r, filter)
}

func (h *reportHandler) session(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, Filter{SessionID: chi.URLParam(r, "sessionID")})
}

func (h *reportHandler) query(w http.ResponseWriter, r *http.Request, filter Filter) {
	events, err := h.querier.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", map[string]interface{}{"error": err.Error()})
		writeReportError(w, http.StatusBadGateway, err)
		return
	}
	if events == nil {
		events = []Event{}
	}
	writeReport(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

func (h *reportHandler) summary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.querier.DecisionSummary(r.Context())
	if err != nil {
		h.logger.Error("decision summary failed", map[string]interface{}{"error": err.Error()})
		writeReportError(w, http.StatusBadGateway, err)
		return
	}

	recent, err := h.querier.Query(r.Context(), Filter{
		EventType:   EventEligibilityDecision,
		Limit:       recentDecisionsLimit,
		NewestFirst: true,
	})
	if err != nil {
		h.logger.Error("recent decisions query failed", map[string]interface{}{"error": err.Error()})
		writeReportError(w, http.StatusBadGateway, err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeReport(w, http.StatusOK, map[string]interface{}{
		"total_decisions": total,
		"decisions":       counts,
		"recent_events":   recentDecisions(recent),
	})
}

const recentDecisionsLimit = 50

type recentDecision struct {
	SessionID        string      `json:"session_id"`
	Timestamp        time.Time   `json:"timestamp"`
	Decision         interface{} `json:"decision"`
	RiskProbability  interface{} `json:"risk_probability"`
	EligibilityScore interface{} `json:"eligibility_score"`
}

func recentDecisions(events []Event) []recentDecision {
	out := make([]recentDecision, 0, len(events))
	for _, e := range events {
		out = append(out, recentDecision{
			SessionID:        e.SessionID,
			Timestamp:        e.Timestamp,
			Decision:         e.OutputSnapshot["decision"],
			RiskProbability:  e.OutputSnapshot["risk_probability"],
			EligibilityScore: e.OutputSnapshot["eligibility_score"],
		})
	}
	return out
}

func writeReportError(w http.ResponseWriter, status int, err error) {
	body := map[string]interface{}{"error": err.Error()}
	if stdErr, ok := errors.AsStandardError(err); ok {
		body["code"] = stdErr.Code
		body["error"] = stdErr.Message
	}
	writeReport(w, status, body)
}

func writeReport(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
