package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
)

// handleCreateInvite registers a pending invite for today.
func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	var in invite.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}
	inv, err := s.invites.Create(in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// handleListInvites lists invites, scoped to a host when ?host= is given
// and to today otherwise.
func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))

	var (
		invites []*invite.Invite
		err     error
	)
	if host != "" {
		invites, err = s.invites.ListForHost(host)
	} else {
		invites, err = s.invites.ListToday()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

type cancelInviteBody struct {
	HostName string `json:"host_name"`
}

func (s *Server) handleCancelInvite(w http.ResponseWriter, r *http.Request) {
	var body cancelInviteBody
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.invites.Cancel(chi.URLParam(r, "id"), body.HostName); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type checkInBody struct {
	Code string `json:"code"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var body checkInBody
	if !decodeBody(w, r, &body) {
		return
	}
	v, err := s.visits.CheckInByCode(body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleWalkIn(w http.ResponseWriter, r *http.Request) {
	var in visit.WalkInInput
	if !decodeBody(w, r, &in) {
		return
	}
	v, err := s.visits.RegisterWalkIn(in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type startCheckoutBody struct {
	HostName string `json:"host_name"`
	Code     string `json:"code"`
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	var body startCheckoutBody
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := s.checkouts.Start(body.HostName, body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListCheckouts(w http.ResponseWriter, _ *http.Request) {
	reqs, err := s.checkouts.ListActive()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleFinalizeCheckout(w http.ResponseWriter, r *http.Request) {
	if err := s.checkouts.Finalize(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exit_confirmed"})
}

// handleListVisits returns the open-visit set the security dashboard polls.
func (s *Server) handleListVisits(w http.ResponseWriter, _ *http.Request) {
	visits, err := s.visitRepo.ListOpen()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, visits)
}

func (s *Server) handleVisitEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.visitRepo.GetByID(id); err != nil {
		writeError(w, err)
		return
	}
	events, err := s.events.ListByVisit(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// handleSweep runs an on-demand escalation pass. Equivalent in correctness
// to the scheduled sweep; the ledger keeps the overlap safe.
func (s *Server) handleSweep(w http.ResponseWriter, _ *http.Request) {
	result, err := s.sweeper.Run(s.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	role := notification.Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role"))))
	if !role.Valid() {
		writeError(w, apperr.Validation("role must be SECURITY or ADMIN"))
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "1"

	notifications, err := s.notifications.ListByRole(role, unreadOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notifications.MarkRead(chi.URLParam(r, "id"), s.now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
