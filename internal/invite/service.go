package invite

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/code"
)

// insertAttempts bounds regenerate-and-retry cycles when a freshly generated
// code loses the race against a concurrent insert of the same code.
const insertAttempts = 3

// VisitCodes lists codes already assigned to visits, so invite codes never
// collide with them.
type VisitCodes interface {
	Codes() (map[string]bool, error)
}

// Service provides invite business logic.
type Service struct {
	repo       *Repository
	visitCodes VisitCodes
	now        func() time.Time
}

// NewService creates an invite service. now may be nil, defaulting to
// time.Now.
func NewService(repo *Repository, visitCodes VisitCodes, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, visitCodes: visitCodes, now: now}
}

// CreateInput describes a host's invite request.
type CreateInput struct {
	HostName        string `json:"host_name"`
	VisitorName     string `json:"visitor_name"`
	VisitorIDNumber string `json:"visitor_id_number"`
	Purpose         string `json:"purpose"`
	Destination     string `json:"destination"`
}

// Create registers a pending invite for today. It enforces the per-host
// daily quota and rejects a second pending invite for the same visitor from
// the same host on the same day.
func (s *Service) Create(in CreateInput) (*Invite, error) {
	hostName := strings.TrimSpace(in.HostName)
	visitorName := strings.TrimSpace(in.VisitorName)
	idNumber := strings.TrimSpace(in.VisitorIDNumber)
	purpose := strings.TrimSpace(in.Purpose)
	destination := strings.TrimSpace(in.Destination)

	if len(hostName) < 2 {
		return nil, apperr.Validation("host name must be at least 2 characters")
	}
	if len(visitorName) < 2 {
		return nil, apperr.Validation("visitor name must be at least 2 characters")
	}
	if len(idNumber) < 4 {
		return nil, apperr.Validation("visitor id number must be at least 4 characters")
	}
	if purpose == "" {
		return nil, apperr.Validation("purpose is required")
	}

	now := s.now().UTC()
	forDate := DateOf(now)
	hostKey := NormalizeHostKey(hostName)

	count, err := s.repo.CountActiveForHostDay(hostKey, forDate)
	if err != nil {
		return nil, err
	}
	if count >= MaxPerHostPerDay {
		return nil, apperr.QuotaExceeded("host %s already has %d invites for %s", hostName, count, forDate)
	}

	dup, err := s.repo.HasPendingForVisitor(hostKey, forDate, idNumber)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.Conflict(apperr.ReasonDuplicatePending,
			"a pending invite for visitor %s already exists today", idNumber)
	}

	// The generated code must be unique across live invite codes and all
	// visit codes. The snapshot check keeps retries cheap; the store index
	// is what actually guarantees uniqueness, so a lost race regenerates.
	for attempt := 0; attempt < insertAttempts; attempt++ {
		existing, err := s.existingCodes()
		if err != nil {
			return nil, err
		}
		c, err := code.Generate(existing, code.DefaultLength)
		if err != nil {
			return nil, err
		}

		inv := &Invite{
			ID:              uuid.NewString(),
			Code:            c,
			HostName:        hostName,
			HostKey:         hostKey,
			VisitorName:     visitorName,
			VisitorIDNumber: idNumber,
			Purpose:         purpose,
			Destination:     destination,
			ForDate:         forDate,
			Status:          StatusPending,
			CreatedAt:       now,
		}
		err = s.repo.Insert(inv)
		if err == nil {
			slog.Info("invite created", "invite_id", inv.ID, "host_key", hostKey, "for_date", forDate)
			return inv, nil
		}
		if errors.Is(err, &apperr.Error{Kind: apperr.KindConflict, Reason: apperr.ReasonInvalidState}) {
			slog.Warn("invite code collided on insert, regenerating", "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, apperr.KeyspaceExhausted("could not assign a unique invite code after %d inserts", insertAttempts)
}

// Cancel withdraws a pending invite. Checked-in invites are never
// cancellable; the visit already exists.
func (s *Service) Cancel(inviteID, hostName string) error {
	if strings.TrimSpace(inviteID) == "" {
		return apperr.Validation("invite id is required")
	}
	inv, err := s.repo.GetByID(inviteID)
	if err != nil {
		return err
	}
	if inv.Status != StatusPending {
		return apperr.Conflict(apperr.ReasonInvalidState,
			"invite %s is %s, only pending invites can be cancelled", inviteID, inv.Status)
	}
	if err := s.repo.MarkCancelled(inviteID, s.now()); err != nil {
		return err
	}
	slog.Info("invite cancelled", "invite_id", inviteID, "host", hostName)
	return nil
}

// ListForHost returns the host's invites, newest first.
func (s *Service) ListForHost(hostName string) ([]*Invite, error) {
	return s.repo.ListByHost(NormalizeHostKey(hostName))
}

// ListToday returns all invites scoped to the current calendar day.
func (s *Service) ListToday() ([]*Invite, error) {
	return s.repo.ListForDate(DateOf(s.now()))
}

func (s *Service) existingCodes() (map[string]bool, error) {
	existing, err := s.repo.LiveCodes()
	if err != nil {
		return nil, err
	}
	visitCodes, err := s.visitCodes.Codes()
	if err != nil {
		return nil, err
	}
	for c := range visitCodes {
		existing[c] = true
	}
	return existing, nil
}
