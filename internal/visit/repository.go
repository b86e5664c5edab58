package visit

import (
	"database/sql"
	"strings"
	"time"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/db"
	"github.com/karibu-campus/karibu/internal/invite"
)

const visitColumns = `id, kind, code, id_number, full_name, email, phone, destination,
	purpose, host_name, invite_id, decision, status, checkout_requested_at,
	checkout_requested_by, created_at, checked_out_at`

// Repository provides data access for visits.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a visit repository.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// Insert persists a new open visit. The open-identity index rejects a
// second open visit for the same id number regardless of what the caller
// pre-checked.
func (r *Repository) Insert(v *Visit) error {
	_, err := r.db.Exec(insertVisitSQL, insertVisitArgs(v)...)
	if err != nil {
		return mapVisitInsertErr(err)
	}
	return nil
}

// CheckInFromInvite consumes a pending invite and creates its open visit in
// one transaction. The invite flip carries a pending-status guard and the
// visit insert sits under the open-identity and one-visit-per-invite
// indexes, so two racing check-ins produce exactly one visit.
func (r *Repository) CheckInFromInvite(inviteID string, v *Visit, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apperr.Persistence("beginning check-in transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.Exec(`
		UPDATE invites SET status = ?, checked_in_at = ?
		WHERE id = ? AND status = ?`,
		invite.StatusCheckedIn, at.UTC(), inviteID, invite.StatusPending,
	)
	if err != nil {
		return apperr.Persistence("consuming invite", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("checking rows affected", err)
	}
	if n == 0 {
		err = apperr.Conflict(apperr.ReasonAlreadyCheckedIn, "invite %s was already consumed", inviteID)
		return err
	}

	if _, err = tx.Exec(insertVisitSQL, insertVisitArgs(v)...); err != nil {
		err = mapVisitInsertErr(err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperr.Persistence("committing check-in", err)
	}
	return nil
}

// GetByID fetches a visit by id.
func (r *Repository) GetByID(id string) (*Visit, error) {
	row := r.db.QueryRow(`SELECT `+visitColumns+` FROM visits WHERE id = ?`, id)
	return scanVisitRow(row)
}

// FindOpenByIDNumber returns the open visit for a physical identity, if any.
func (r *Repository) FindOpenByIDNumber(idNumber string) (*Visit, error) {
	row := r.db.QueryRow(`
		SELECT `+visitColumns+` FROM visits
		WHERE id_number = ? AND checked_out_at IS NULL`, idNumber)
	return scanVisitRow(row)
}

// FindOpenByEmail returns the open visit registered with the email, if any.
func (r *Repository) FindOpenByEmail(email string) (*Visit, error) {
	row := r.db.QueryRow(`
		SELECT `+visitColumns+` FROM visits
		WHERE LOWER(email) = LOWER(?) AND email != '' AND checked_out_at IS NULL`, email)
	return scanVisitRow(row)
}

// FindOpenByCode returns the open visit carrying the invite code, if any.
func (r *Repository) FindOpenByCode(codeValue string) (*Visit, error) {
	row := r.db.QueryRow(`
		SELECT `+visitColumns+` FROM visits
		WHERE code = ? AND checked_out_at IS NULL`, codeValue)
	return scanVisitRow(row)
}

// FindByInviteID returns the visit created from an invite, if any.
func (r *Repository) FindByInviteID(inviteID string) (*Visit, error) {
	row := r.db.QueryRow(`SELECT `+visitColumns+` FROM visits WHERE invite_id = ?`, inviteID)
	return scanVisitRow(row)
}

// ListOpen returns all open visits, newest first.
func (r *Repository) ListOpen() ([]*Visit, error) {
	rows, err := r.db.Query(`
		SELECT ` + visitColumns + ` FROM visits
		WHERE checked_out_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Persistence("listing open visits", err)
	}
	defer rows.Close()

	var visits []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating visits", err)
	}
	return visits, nil
}

// Codes returns the set of codes assigned to any visit, live or closed.
// Used by invite creation to keep the code namespace collision-free.
func (r *Repository) Codes() (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT code FROM visits WHERE code IS NOT NULL`)
	if err != nil {
		return nil, apperr.Persistence("listing visit codes", err)
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperr.Persistence("scanning visit code", err)
		}
		codes[c] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating visit codes", err)
	}
	return codes, nil
}

const insertVisitSQL = `
	INSERT INTO visits (id, kind, code, id_number, full_name, email, phone,
		destination, purpose, host_name, invite_id, decision, status, created_at)
	VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)`

func insertVisitArgs(v *Visit) []any {
	return []any{
		v.ID, v.Kind, v.Code, v.IDNumber, v.FullName, v.Email, v.Phone,
		v.Destination, v.Purpose, v.HostName, v.InviteID, v.Decision,
		v.Status, v.CreatedAt.UTC(),
	}
}

func mapVisitInsertErr(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return apperr.Persistence("inserting visit", err)
	}
	switch {
	case strings.Contains(constraint, "id_number"):
		return apperr.Conflict(apperr.ReasonDuplicateActiveIdentity,
			"an open visit already exists for this id number")
	case strings.Contains(constraint, "invite_id"):
		return apperr.Conflict(apperr.ReasonAlreadyCheckedIn,
			"a visit already exists for this invite")
	default:
		return apperr.Conflict(apperr.ReasonInvalidState, "visit violates %s", constraint)
	}
}

func scanVisitRow(row *sql.Row) (*Visit, error) {
	v, err := scanVisit(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("visit not found")
	}
	return v, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVisit(s scanner) (*Visit, error) {
	var v Visit
	var codeValue, inviteID sql.NullString
	err := s.Scan(&v.ID, &v.Kind, &codeValue, &v.IDNumber, &v.FullName,
		&v.Email, &v.Phone, &v.Destination, &v.Purpose, &v.HostName,
		&inviteID, &v.Decision, &v.Status, &v.CheckoutRequestedAt,
		&v.CheckoutRequestedBy, &v.CreatedAt, &v.CheckedOutAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperr.Persistence("scanning visit", err)
	}
	v.Code = codeValue.String
	v.InviteID = inviteID.String
	return &v, nil
}
