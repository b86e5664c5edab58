// Package web provides the JSON API for karibu: the operation trigger
// surface used by host and security stations, and the role-scoped read
// side their dashboards poll.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/checkout"
	"github.com/karibu-campus/karibu/internal/escalation"
	"github.com/karibu-campus/karibu/internal/event"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/logging"
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
)

// Server is the karibu HTTP server.
type Server struct {
	invites       *invite.Service
	visits        *visit.Service
	visitRepo     *visit.Repository
	checkouts     *checkout.Service
	events        *event.Repository
	notifications *notification.Repository
	sweeper       *escalation.Sweeper
	now           func() time.Time
	router        chi.Router
}

// NewServer wires the services into a chi router. now may be nil,
// defaulting to time.Now.
func NewServer(
	invites *invite.Service,
	visits *visit.Service,
	visitRepo *visit.Repository,
	checkouts *checkout.Service,
	events *event.Repository,
	notifications *notification.Repository,
	sweeper *escalation.Sweeper,
	now func() time.Time,
) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{
		invites:       invites,
		visits:        visits,
		visitRepo:     visitRepo,
		checkouts:     checkouts,
		events:        events,
		notifications: notifications,
		sweeper:       sweeper,
		now:           now,
	}

	r := chi.NewRouter()
	r.Use(logging.RequestLogger)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/invites", s.handleCreateInvite)
		r.Get("/invites", s.handleListInvites)
		r.Post("/invites/{id}/cancel", s.handleCancelInvite)

		r.Post("/checkins", s.handleCheckIn)
		r.Post("/walkins", s.handleWalkIn)

		r.Post("/checkouts", s.handleStartCheckout)
		r.Get("/checkouts", s.handleListCheckouts)
		r.Post("/visits/{id}/exit", s.handleFinalizeCheckout)

		r.Get("/visits", s.handleListVisits)
		r.Get("/visits/{id}/events", s.handleVisitEvents)

		r.Post("/sweep", s.handleSweep)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/{id}/read", s.handleMarkNotificationRead)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// errorBody is the JSON shape of a failed operation.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// writeError maps a typed error onto its HTTP status and structured body.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	detail := errorDetail{Kind: "internal", Message: "internal error"}
	if e, ok := asAppError(err); ok {
		detail.Kind = string(e.Kind)
		detail.Reason = string(e.Reason)
		detail.Message = e.Message
	}
	if status >= 500 {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func asAppError(err error) (*apperr.Error, bool) {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperr.Validation("invalid JSON body: %v", err))
		return false
	}
	return true
}
