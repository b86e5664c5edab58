package checkout

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/code"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/visit"
)

// Service coordinates exit countdowns: hosts start the clock, security
// confirms the exit.
type Service struct {
	repo   *Repository
	visits *visit.Repository
	now    func() time.Time
}

// NewService creates a checkout service. now may be nil, defaulting to
// time.Now.
func NewService(repo *Repository, visits *visit.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, visits: visits, now: now}
}

// Start begins the exit countdown for the open visit carrying the code.
// A second start for the same visit fails; it must not reset the clock.
func (s *Service) Start(hostName, rawCode string) (*Request, error) {
	hostName = strings.TrimSpace(hostName)
	if len(hostName) < 2 {
		return nil, apperr.Validation("host name must be at least 2 characters")
	}
	c := code.Normalize(rawCode)
	if c == "" {
		return nil, apperr.Validation("code is required")
	}

	v, err := s.visits.FindOpenByCode(c)
	if err != nil {
		if errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}) {
			return nil, apperr.NotFound("no active visitor for code %s", c)
		}
		return nil, err
	}

	// Pre-check for a precise error; the store's one-requested-per-visit
	// index settles any race.
	if _, err := s.repo.FindActiveByVisit(v.ID); err == nil {
		return nil, apperr.Conflict(apperr.ReasonAlreadyRequested,
			"checkout already requested for %s", v.FullName)
	} else if !errors.Is(err, &apperr.Error{Kind: apperr.KindNotFound}) {
		return nil, err
	}

	req := &Request{
		ID:              uuid.NewString(),
		VisitID:         v.ID,
		VisitorName:     v.FullName,
		VisitorIDNumber: v.IDNumber,
		HostName:        hostName,
		HostKey:         invite.NormalizeHostKey(hostName),
		Code:            v.Code,
		Status:          StatusRequested,
		RequestedAt:     s.now().UTC(),
	}
	if err := s.repo.Start(req); err != nil {
		return nil, err
	}
	slog.Info("checkout clock started", "visit_id", v.ID, "host", hostName)
	return req, nil
}

// Finalize confirms the visitor's exit and closes the visit. Terminal: from
// this instant the visit is excluded from escalation sweeps.
func (s *Service) Finalize(visitID string) error {
	if strings.TrimSpace(visitID) == "" {
		return apperr.Validation("visit id is required")
	}
	if err := s.repo.Finalize(visitID, s.now()); err != nil {
		return err
	}
	slog.Info("exit confirmed", "visit_id", visitID)
	return nil
}

// ListActive returns all running exit countdowns, newest first.
func (s *Service) ListActive() ([]*Request, error) {
	return s.repo.ListActive()
}

// FinalizeByIDNumber confirms the exit of the open visit for a physical
// identity, for gates that work off the visitor's document rather than the
// visit id.
func (s *Service) FinalizeByIDNumber(idNumber string) error {
	idNumber = strings.TrimSpace(idNumber)
	if idNumber == "" {
		return apperr.Validation("id number is required")
	}
	v, err := s.visits.FindOpenByIDNumber(idNumber)
	if err != nil {
		return err
	}
	return s.Finalize(v.ID)
}
