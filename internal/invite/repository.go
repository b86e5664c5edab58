package invite

import (
	"database/sql"
	"strings"
	"time"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/db"
)

const inviteColumns = `id, code, host_name, host_key, visitor_name, visitor_id_number,
	purpose, destination, for_date, status, created_at, checked_in_at, cancelled_at`

// Repository provides data access for invites.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an invite repository.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// Insert persists a new invite. The live-code uniqueness index guards code
// assignment; a collision with another live invite code surfaces as a
// conflict so the caller can regenerate.
func (r *Repository) Insert(inv *Invite) error {
	_, err := r.db.Exec(`
		INSERT INTO invites (id, code, host_name, host_key, visitor_name,
			visitor_id_number, purpose, destination, for_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Code, inv.HostName, inv.HostKey, inv.VisitorName,
		inv.VisitorIDNumber, inv.Purpose, inv.Destination, inv.ForDate,
		inv.Status, inv.CreatedAt.UTC(),
	)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && strings.Contains(constraint, "code") {
			return apperr.Conflict(apperr.ReasonInvalidState, "invite code %s already live", inv.Code)
		}
		return apperr.Persistence("inserting invite", err)
	}
	return nil
}

// GetByID fetches an invite by id.
func (r *Repository) GetByID(id string) (*Invite, error) {
	row := r.db.QueryRow(`SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id)
	return scanInvite(row)
}

// FindByCode fetches the live (non-cancelled) invite carrying the code, or
// failing that the most recent cancelled one so callers can report a precise
// already-cancelled conflict.
func (r *Repository) FindByCode(codeValue string) (*Invite, error) {
	row := r.db.QueryRow(`
		SELECT `+inviteColumns+` FROM invites WHERE code = ?
		ORDER BY CASE status WHEN 'cancelled' THEN 1 ELSE 0 END, created_at DESC
		LIMIT 1`, codeValue)
	return scanInvite(row)
}

// CountActiveForHostDay counts a host's non-cancelled invites for a day.
func (r *Repository) CountActiveForHostDay(hostKey, forDate string) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM invites
		WHERE host_key = ? AND for_date = ? AND status != 'cancelled'`,
		hostKey, forDate,
	).Scan(&n)
	if err != nil {
		return 0, apperr.Persistence("counting invites", err)
	}
	return n, nil
}

// HasPendingForVisitor reports whether the host already holds a pending
// invite for the visitor on the given day.
func (r *Repository) HasPendingForVisitor(hostKey, forDate, visitorIDNumber string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM invites
		WHERE host_key = ? AND for_date = ? AND visitor_id_number = ? AND status = 'pending'`,
		hostKey, forDate, visitorIDNumber,
	).Scan(&n)
	if err != nil {
		return false, apperr.Persistence("checking pending invite", err)
	}
	return n > 0, nil
}

// ListByHost returns a host's invites, newest first.
func (r *Repository) ListByHost(hostKey string) ([]*Invite, error) {
	return r.list(`SELECT `+inviteColumns+` FROM invites WHERE host_key = ? ORDER BY created_at DESC`, hostKey)
}

// ListForDate returns all invites for a calendar day, newest first.
func (r *Repository) ListForDate(forDate string) ([]*Invite, error) {
	return r.list(`SELECT `+inviteColumns+` FROM invites WHERE for_date = ? ORDER BY created_at DESC`, forDate)
}

// LiveCodes returns the set of codes held by non-cancelled invites.
func (r *Repository) LiveCodes() (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT code FROM invites WHERE status != 'cancelled'`)
	if err != nil {
		return nil, apperr.Persistence("listing live invite codes", err)
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperr.Persistence("scanning invite code", err)
		}
		codes[c] = true
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating invite codes", err)
	}
	return codes, nil
}

// MarkCancelled flips a pending invite to cancelled. The status guard in
// the WHERE clause makes the transition safe against a concurrent check-in.
func (r *Repository) MarkCancelled(id string, at time.Time) error {
	res, err := r.db.Exec(`
		UPDATE invites SET status = ?, cancelled_at = ?
		WHERE id = ? AND status = ?`,
		StatusCancelled, at.UTC(), id, StatusPending,
	)
	if err != nil {
		return apperr.Persistence("cancelling invite", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("checking rows affected", err)
	}
	if n == 0 {
		return apperr.Conflict(apperr.ReasonInvalidState, "invite %s is not pending", id)
	}
	return nil
}

func (r *Repository) list(query string, args ...any) ([]*Invite, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Persistence("listing invites", err)
	}
	defer rows.Close()

	var invites []*Invite
	for rows.Next() {
		inv, err := scanInviteRows(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating invites", err)
	}
	return invites, nil
}

func scanInvite(row *sql.Row) (*Invite, error) {
	var inv Invite
	err := row.Scan(&inv.ID, &inv.Code, &inv.HostName, &inv.HostKey,
		&inv.VisitorName, &inv.VisitorIDNumber, &inv.Purpose, &inv.Destination,
		&inv.ForDate, &inv.Status, &inv.CreatedAt, &inv.CheckedInAt, &inv.CancelledAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("invite not found")
	}
	if err != nil {
		return nil, apperr.Persistence("scanning invite", err)
	}
	return &inv, nil
}

func scanInviteRows(rows *sql.Rows) (*Invite, error) {
	var inv Invite
	err := rows.Scan(&inv.ID, &inv.Code, &inv.HostName, &inv.HostKey,
		&inv.VisitorName, &inv.VisitorIDNumber, &inv.Purpose, &inv.Destination,
		&inv.ForDate, &inv.Status, &inv.CreatedAt, &inv.CheckedInAt, &inv.CancelledAt)
	if err != nil {
		return nil, apperr.Persistence("scanning invite", err)
	}
	return &inv, nil
}
