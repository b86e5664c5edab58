package checkout

import (
	"database/sql"
	"strings"
	"time"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/db"
	"github.com/karibu-campus/karibu/internal/visit"
)

const requestColumns = `id, visit_id, visitor_name, visitor_id_number, host_name,
	host_key, code, status, requested_at, finalized_at`

// Repository provides data access for checkout requests.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a checkout repository.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// Start inserts the checkout request and stamps the visit in one
// transaction. The one-requested-per-visit index rejects a concurrent
// second start; the stamped checkout_requested_at is the sole canonical
// input to the escalation sweep.
func (r *Repository) Start(req *Request) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apperr.Persistence("beginning checkout transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO checkout_requests (id, visit_id, visitor_name, visitor_id_number,
			host_name, host_key, code, status, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.VisitID, req.VisitorName, req.VisitorIDNumber,
		req.HostName, req.HostKey, req.Code, req.Status, req.RequestedAt.UTC(),
	)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && strings.Contains(constraint, "visit_id") {
			err = apperr.Conflict(apperr.ReasonAlreadyRequested,
				"checkout already requested for visit %s", req.VisitID)
			return err
		}
		err = apperr.Persistence("inserting checkout request", err)
		return err
	}

	res, err := tx.Exec(`
		UPDATE visits
		SET checkout_requested_at = ?, checkout_requested_by = ?, status = ?
		WHERE id = ? AND checked_out_at IS NULL`,
		req.RequestedAt.UTC(), req.HostName, visit.StatusHostCheckoutStarted, req.VisitID,
	)
	if err != nil {
		err = apperr.Persistence("stamping visit checkout", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		err = apperr.Persistence("checking rows affected", err)
		return err
	}
	if n == 0 {
		err = apperr.NotFound("no open visit %s", req.VisitID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperr.Persistence("committing checkout start", err)
	}
	return nil
}

// Finalize closes the visit and settles its active request in one
// transaction. Closing the visit removes it from sweep selection, silencing
// any escalation still owed, however far the chain had progressed.
func (r *Repository) Finalize(visitID string, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apperr.Persistence("beginning finalize transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.Exec(`
		UPDATE visits SET checked_out_at = ?, status = ?
		WHERE id = ? AND checked_out_at IS NULL`,
		at.UTC(), visit.StatusExitConfirmed, visitID,
	)
	if err != nil {
		err = apperr.Persistence("closing visit", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		err = apperr.Persistence("checking rows affected", err)
		return err
	}
	if n == 0 {
		err = apperr.NotFound("no open visit %s", visitID)
		return err
	}

	// A visit checked out before any host request has no row to settle.
	if _, err = tx.Exec(`
		UPDATE checkout_requests SET status = ?, finalized_at = ?
		WHERE visit_id = ? AND status = ?`,
		StatusFinalized, at.UTC(), visitID, StatusRequested,
	); err != nil {
		err = apperr.Persistence("settling checkout request", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperr.Persistence("committing finalize", err)
	}
	return nil
}

// FindActiveByVisit returns the requested checkout for a visit, if any.
func (r *Repository) FindActiveByVisit(visitID string) (*Request, error) {
	row := r.db.QueryRow(`
		SELECT `+requestColumns+` FROM checkout_requests
		WHERE visit_id = ? AND status = ?`, visitID, StatusRequested)
	return scanRequest(row)
}

// ListActive returns all requested checkouts, newest first.
func (r *Repository) ListActive() ([]*Request, error) {
	rows, err := r.db.Query(`
		SELECT `+requestColumns+` FROM checkout_requests
		WHERE status = ? ORDER BY requested_at DESC`, StatusRequested)
	if err != nil {
		return nil, apperr.Persistence("listing checkout requests", err)
	}
	defer rows.Close()

	var reqs []*Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.VisitID, &req.VisitorName,
			&req.VisitorIDNumber, &req.HostName, &req.HostKey, &req.Code,
			&req.Status, &req.RequestedAt, &req.FinalizedAt); err != nil {
			return nil, apperr.Persistence("scanning checkout request", err)
		}
		reqs = append(reqs, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating checkout requests", err)
	}
	return reqs, nil
}

func scanRequest(row *sql.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.VisitID, &req.VisitorName, &req.VisitorIDNumber,
		&req.HostName, &req.HostKey, &req.Code, &req.Status, &req.RequestedAt,
		&req.FinalizedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("checkout request not found")
	}
	if err != nil {
		return nil, apperr.Persistence("scanning checkout request", err)
	}
	return &req, nil
}
