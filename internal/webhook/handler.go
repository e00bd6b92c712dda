package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sapliy/pushbridge/internal/classify"
	"github.com/sapliy/pushbridge/internal/dispatch"
	"github.com/sapliy/pushbridge/internal/event"
	"github.com/sapliy/pushbridge/pkg/jsonutil"
	"github.com/sapliy/pushbridge/pkg/observability"
)

// payload is the inbound webhook body. The producer has used both "type" and
// "operation" for the operation field across versions.
type payload struct {
	Table     string       `json:"table"`
	Type      string       `json:"type"`
	Operation string       `json:"operation"`
	Record    event.Record `json:"record"`
	OldRecord event.Record `json:"old_record"`
}

// response is always returned with HTTP 200: the upstream producer disables
// the webhook after repeated non-2xx responses, so every internal failure is
// reported in-band through the status field.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	statusSuccess = "success"
	statusIgnored = "ignored"
	statusError   = "error"
	statusFailure = "failure"
)

// Server is the HTTP surface of the relay: the webhook endpoint, health
// checks, and metrics.
type Server struct {
	classifier *classify.Classifier
	dispatcher *dispatch.Dispatcher
	outcomes   OutcomeSink
	log        *observability.Logger
}

func NewServer(classifier *classify.Classifier, dispatcher *dispatch.Dispatcher, outcomes OutcomeSink, log *observability.Logger) *Server {
	return &Server{
		classifier: classifier,
		dispatcher: dispatcher,
		outcomes:   outcomes,
		log:        log,
	}
}

// Routes builds the service mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/notify-user", s.recoverPanics(s.handleNotify))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "notification-service",
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.log.Error("invalid webhook payload", "error", err)
		s.respond(w, statusFailure, "invalid JSON payload")
		return
	}

	eventID := "evt_" + uuid.NewString()
	op := p.Operation
	if op == "" {
		op = p.Type
	}
	ev := event.ChangeEvent{
		Table:     p.Table,
		Operation: event.ParseOperation(op),
		Record:    p.Record,
		OldRecord: p.OldRecord,
	}
	if ev.Record == nil {
		ev.Record = event.Record{}
	}

	s.log.Info("webhook received", "event_id", eventID, "table", ev.Table, "operation", string(ev.Operation))

	result, err := s.classifier.Classify(r.Context(), ev)
	if err != nil {
		eventsTotal.WithLabelValues(ev.Table, statusError).Inc()
		s.log.Error("classification failed", "event_id", eventID, "table", ev.Table, "error", err)
		s.respond(w, statusError, err.Error())
		return
	}

	if result.Status == classify.StatusIgnored {
		eventsTotal.WithLabelValues(ev.Table, statusIgnored).Inc()
		s.respond(w, statusIgnored, result.Reason)
		return
	}

	outcomes := s.dispatcher.DispatchAll(r.Context(), result.Intents)

	delivered := 0
	for _, o := range outcomes {
		deliveriesTotal.WithLabelValues(string(o.Reason)).Inc()
		if o.Delivered {
			delivered++
		}
		s.publishOutcome(r, eventID, ev.Table, o)
	}

	eventsTotal.WithLabelValues(ev.Table, statusSuccess).Inc()
	s.log.Info("event processed", "event_id", eventID, "table", ev.Table,
		"intents", len(outcomes), "delivered", delivered)

	// Delivery misses are best-effort and already summarized above. The
	// webhook contract only cares that the event was accepted and processed.
	s.respond(w, statusSuccess, deliverySummary(delivered, len(outcomes)))
}

func (s *Server) respond(w http.ResponseWriter, status, message string) {
	jsonutil.WriteJSON(w, http.StatusOK, response{Status: status, Message: message})
}

// recoverPanics converts any panic in the pipeline into a "failure" response,
// still with HTTP 200.
func (s *Server) recoverPanics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic while processing webhook", "panic", rec)
				s.respond(w, statusFailure, "internal processing error")
			}
		}()
		next(w, r)
	}
}

// outcomeRecord is the audit event published per delivery attempt.
type outcomeRecord struct {
	EventID     string    `json:"event_id"`
	Table       string    `json:"table"`
	RecipientID string    `json:"recipient_id"`
	Delivered   bool      `json:"delivered"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

// OutcomeSink receives delivery-outcome audit events. Publishing is fire and
// forget; it happens after the delivery attempt and never affects the
// webhook response.
type OutcomeSink interface {
	Publish(ctx context.Context, key string, value []byte) error
}

func (s *Server) publishOutcome(r *http.Request, eventID, table string, o dispatch.Outcome) {
	if s.outcomes == nil {
		return
	}
	rec := outcomeRecord{
		EventID:     eventID,
		Table:       table,
		RecipientID: o.RecipientID,
		Delivered:   o.Delivered,
		Reason:      string(o.Reason),
		Timestamp:   time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.log.Error("failed to marshal outcome record", "error", err)
		return
	}
	if err := s.outcomes.Publish(r.Context(), o.RecipientID, data); err != nil {
		s.log.Error("failed to publish outcome record", "event_id", eventID, "error", err)
	}
}

func deliverySummary(delivered, total int) string {
	return fmt.Sprintf("notifications delivered: %d/%d", delivered, total)
}
