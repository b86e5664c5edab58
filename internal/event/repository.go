package event

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/karibu-campus/karibu/internal/apperr"
)

// Repository provides access to the event ledger.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an event repository.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// Append records an event. The (visit_id, type) constraint makes the append
// exactly-once: a duplicate is reported as inserted=false, not an error, so
// racing writers converge without retry bookkeeping.
func (r *Repository) Append(e *Event) (inserted bool, err error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	meta, err := encodeMeta(e.Meta)
	if err != nil {
		return false, apperr.Persistence("encoding event meta", err)
	}
	res, err := r.db.Exec(`
		INSERT OR IGNORE INTO events (id, visit_id, type, note, meta, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.VisitID, e.Type, e.Note, meta, e.OccurredAt.UTC(),
	)
	if err != nil {
		return false, apperr.Persistence("appending event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Persistence("checking rows affected", err)
	}
	return n > 0, nil
}

// Has reports whether the ledger already holds an event of the given type
// for the visit.
func (r *Repository) Has(visitID, eventType string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM events WHERE visit_id = ? AND type = ?`,
		visitID, eventType,
	).Scan(&n)
	if err != nil {
		return false, apperr.Persistence("checking event ledger", err)
	}
	return n > 0, nil
}

// ListByVisit returns a visit's events in occurrence order.
func (r *Repository) ListByVisit(visitID string) ([]*Event, error) {
	rows, err := r.db.Query(`
		SELECT id, visit_id, type, note, meta, occurred_at FROM events
		WHERE visit_id = ? ORDER BY occurred_at, type`, visitID)
	if err != nil {
		return nil, apperr.Persistence("listing events", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var meta string
		if err := rows.Scan(&e.ID, &e.VisitID, &e.Type, &e.Note, &meta, &e.OccurredAt); err != nil {
			return nil, apperr.Persistence("scanning event", err)
		}
		if e.Meta, err = decodeMeta(meta); err != nil {
			return nil, apperr.Persistence("decoding event meta", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating events", err)
	}
	return events, nil
}
