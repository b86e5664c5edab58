package escalation

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karibu-campus/karibu/internal/apperr"
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
)

// Candidate is the slice of a visit the sweep needs: identity, code for the
// notification, the canonical clock start, and the current status.
type Candidate struct {
	VisitID     string
	Code        string
	RequestedAt time.Time
	Status      visit.Status
}

// Repository performs the sweep's storage work.
type Repository struct {
	db *sql.DB
}

// NewRepository creates an escalation repository.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// ClockRunning selects all open visits whose exit countdown has started.
func (r *Repository) ClockRunning() ([]Candidate, error) {
	rows, err := r.db.Query(`
		SELECT id, COALESCE(code, ''), checkout_requested_at, status FROM visits
		WHERE checkout_requested_at IS NOT NULL AND checked_out_at IS NULL`)
	if err != nil {
		return nil, apperr.Persistence("selecting clock-running visits", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.VisitID, &c.Code, &c.RequestedAt, &c.Status); err != nil {
			return nil, apperr.Persistence("scanning clock-running visit", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating clock-running visits", err)
	}
	return candidates, nil
}

// Fire atomically records one threshold crossing for a visit: the ledger
// event, the role notification, and the monotonic status bump. The
// (visit_id, type) constraint makes it exactly-once; a sweep that lost the
// race observes fired=false and moves on. The status update is guarded so a
// lower threshold fired late never regresses a higher severity, and a visit
// checked out mid-sweep is left untouched.
func (r *Repository) Fire(c Candidate, th Threshold, elapsedMin float64, now time.Time) (fired bool, n *notification.Notification, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, nil, apperr.Persistence("beginning fire transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.Exec(`
		INSERT OR IGNORE INTO events (id, visit_id, type, note, meta, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), c.VisitID, th.EventType(),
		fmt.Sprintf("Elapsed: %dm", int(elapsedMin)),
		fmt.Sprintf(`{"elapsedMin":%.2f}`, elapsedMin),
		now.UTC(),
	)
	if err != nil {
		err = apperr.Persistence("appending escalation event", err)
		return false, nil, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		err = apperr.Persistence("checking rows affected", err)
		return false, nil, err
	}
	if inserted == 0 {
		// Already fired in an earlier or concurrent sweep.
		_ = tx.Rollback()
		return false, nil, nil
	}

	n = &notification.Notification{
		ID:        uuid.NewString(),
		Role:      th.Role,
		Title:     th.Title,
		Body:      fmt.Sprintf("Visit %s has exceeded exit grace period.", c.Code),
		Level:     th.Level,
		VisitCode: c.Code,
		CreatedAt: now.UTC(),
	}
	if _, err = tx.Exec(`
		INSERT INTO notifications (id, role, title, body, level, visit_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Role, n.Title, n.Body, n.Level, n.VisitCode, n.CreatedAt,
	); err != nil {
		err = apperr.Persistence("inserting escalation notification", err)
		return false, nil, err
	}

	if _, err = tx.Exec(
		fmt.Sprintf(`UPDATE visits SET status = ?
			WHERE id = ? AND checked_out_at IS NULL AND status IN (%s)`,
			placeholders(len(statusesBelow(th.Status)))),
		append([]any{th.Status, c.VisitID}, statusesBelow(th.Status)...)...,
	); err != nil {
		err = apperr.Persistence("advancing visit status", err)
		return false, nil, err
	}

	if err = tx.Commit(); err != nil {
		return false, nil, apperr.Persistence("committing threshold fire", err)
	}
	return true, n, nil
}

// statusesBelow returns the statuses of strictly lower severity than target,
// i.e. the only statuses the bump may overwrite.
func statusesBelow(target visit.Status) []any {
	all := []visit.Status{
		visit.StatusPendingArrival,
		visit.StatusCheckedIn,
		visit.StatusHostCheckoutStarted,
		visit.StatusOverdue10,
		visit.StatusOverdue13,
		visit.StatusOverdue15,
		visit.StatusEscalated16,
	}
	var below []any
	for _, s := range all {
		if s.Severity() < target.Severity() {
			below = append(below, s)
		}
	}
	return below
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
