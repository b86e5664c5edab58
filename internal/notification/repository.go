package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/karibu-campus/karibu/internal/apperr"
)

// Repository provides data access for notifications.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a notification repository.
func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

// Insert persists a notification.
func (r *Repository) Insert(n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := r.db.Exec(`
		INSERT INTO notifications (id, role, title, body, level, visit_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Role, n.Title, n.Body, n.Level, n.VisitCode, n.CreatedAt.UTC(),
	)
	if err != nil {
		return apperr.Persistence("inserting notification", err)
	}
	return nil
}

// ListByRole returns a role's notifications, newest first. With unreadOnly,
// already-read rows are skipped.
func (r *Repository) ListByRole(role Role, unreadOnly bool) ([]*Notification, error) {
	query := `
		SELECT id, role, title, body, level, visit_code, created_at, read_at
		FROM notifications WHERE role = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, role)
	if err != nil {
		return nil, apperr.Persistence("listing notifications", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Role, &n.Title, &n.Body, &n.Level,
			&n.VisitCode, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, apperr.Persistence("scanning notification", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterating notifications", err)
	}
	return notifications, nil
}

// MarkRead stamps a notification as consumed.
func (r *Repository) MarkRead(id string, at time.Time) error {
	res, err := r.db.Exec(`
		UPDATE notifications SET read_at = ? WHERE id = ? AND read_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return apperr.Persistence("marking notification read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Persistence("checking rows affected", err)
	}
	if n == 0 {
		return apperr.NotFound("no unread notification %s", id)
	}
	return nil
}

// CountUnread returns the number of unread notifications for a role.
func (r *Repository) CountUnread(role Role) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM notifications WHERE role = ? AND read_at IS NULL`,
		role,
	).Scan(&n)
	if err != nil {
		return 0, apperr.Persistence("counting unread notifications", err)
	}
	return n, nil
}
