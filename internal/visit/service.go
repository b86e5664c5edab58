package visit

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/code"
	"github.com/karibu-campus/karibu/internal/invite"
)

// Service converts invites and walk-ins into open visits.
type Service struct {
	repo    *Repository
	invites *invite.Repository
	now     func() time.Time
}

// NewService creates a visit service. now may be nil, defaulting to
// time.Now.
func NewService(repo *Repository, invites *invite.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, invites: invites, now: now}
}

// CheckInByCode consumes a pending invite for today and opens the visit.
// Failure precedence: not found, wrong day, already cancelled, already
// checked in, then the duplicate-identity guard.
func (s *Service) CheckInByCode(raw string) (*Visit, error) {
	c := code.Normalize(raw)
	if c == "" {
		return nil, apperr.Validation("code is required")
	}

	inv, err := s.invites.FindByCode(c)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if inv.ForDate != invite.DateOf(now) {
		return nil, apperr.Conflict(apperr.ReasonWrongDay,
			"invite %s is for %s, not today", c, inv.ForDate)
	}
	if inv.Status == invite.StatusCancelled {
		return nil, apperr.Conflict(apperr.ReasonAlreadyCancelled, "invite %s was cancelled", c)
	}
	if inv.Status == invite.StatusCheckedIn {
		return nil, apperr.Conflict(apperr.ReasonAlreadyCheckedIn, "invite %s was already used", c)
	}

	if err := s.guardIdentity(inv.VisitorIDNumber, ""); err != nil {
		return nil, err
	}

	v := &Visit{
		ID:          uuid.NewString(),
		Kind:        KindInvite,
		Code:        inv.Code,
		IDNumber:    inv.VisitorIDNumber,
		FullName:    inv.VisitorName,
		Destination: inv.Destination,
		Purpose:     inv.Purpose,
		HostName:    inv.HostName,
		InviteID:    inv.ID,
		Decision:    DecisionApproved,
		Status:      StatusCheckedIn,
		CreatedAt:   now,
	}
	if err := s.repo.CheckInFromInvite(inv.ID, v, now); err != nil {
		return nil, err
	}
	slog.Info("visitor checked in", "visit_id", v.ID, "code", v.Code, "kind", v.Kind)
	return v, nil
}

// WalkInInput describes a gate registration without a prior invite.
type WalkInInput struct {
	IDNumber    string `json:"id_number"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Destination string `json:"destination"`
	Purpose     string `json:"purpose"`
}

// RegisterWalkIn opens a visit directly at the gate. Walk-ins are approved
// by policy; the identity guard still applies, by id number and by email
// when one is given.
func (s *Service) RegisterWalkIn(in WalkInInput) (*Visit, error) {
	idNumber := strings.TrimSpace(in.IDNumber)
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	destination := strings.TrimSpace(in.Destination)

	if len(idNumber) < 4 {
		return nil, apperr.Validation("id number must be at least 4 characters")
	}
	if len(fullName) < 2 {
		return nil, apperr.Validation("full name must be at least 2 characters")
	}
	if destination == "" {
		return nil, apperr.Validation("destination is required")
	}

	if err := s.guardIdentity(idNumber, email); err != nil {
		return nil, err
	}

	v := &Visit{
		ID:          uuid.NewString(),
		Kind:        KindWalkin,
		IDNumber:    idNumber,
		FullName:    fullName,
		Email:       email,
		Phone:       strings.TrimSpace(in.Phone),
		Destination: destination,
		Purpose:     strings.TrimSpace(in.Purpose),
		Decision:    DecisionApproved,
		Status:      StatusCheckedIn,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(v); err != nil {
		return nil, err
	}
	slog.Info("walk-in registered", "visit_id", v.ID, "destination", destination)
	return v, nil
}

// guardIdentity rejects a second open visit for the same id number or
// email. The store's open-identity index is the authoritative guard; this
// pre-check exists to produce the precise conflict before any write.
func (s *Service) guardIdentity(idNumber, email string) error {
	_, err := s.repo.FindOpenByIDNumber(idNumber)
	if err == nil {
		return apperr.Conflict(apperr.ReasonDuplicateActiveIdentity,
			"an open visit already exists for id number %s", idNumber)
	}
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}) {
		return err
	}
	if email != "" {
		_, err := s.repo.FindOpenByEmail(email)
		if err == nil {
			return apperr.Conflict(apperr.ReasonDuplicateActiveIdentity,
				"an open visit already exists for email %s", email)
		}
		if !errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}) {
			return err
		}
	}
	return nil
}
