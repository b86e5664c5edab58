package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
// Uniqueness invariants are enforced here, at the store, so that racing
// writers are serialized by SQLite rather than by application pre-checks:
//   - at most one open visit per id_number (partial unique index);
//   - one live code across non-cancelled invites, one code per visit;
//   - one (visit_id, type) event row — the escalation idempotency ledger;
//   - one requested checkout per visit.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS invites (
		id                TEXT     PRIMARY KEY,
		code              TEXT     NOT NULL,
		host_name         TEXT     NOT NULL,
		host_key          TEXT     NOT NULL,
		visitor_name      TEXT     NOT NULL,
		visitor_id_number TEXT     NOT NULL,
		purpose           TEXT     NOT NULL,
		destination       TEXT     NOT NULL DEFAULT '',
		for_date          TEXT     NOT NULL,
		status            TEXT     NOT NULL DEFAULT 'pending',
		created_at        DATETIME NOT NULL,
		checked_in_at     DATETIME,
		cancelled_at      DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_invites_live_code
		ON invites(code) WHERE status != 'cancelled'`,
	`CREATE INDEX IF NOT EXISTS idx_invites_host_day
		ON invites(host_key, for_date)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id                    TEXT     PRIMARY KEY,
		kind                  TEXT     NOT NULL,
		code                  TEXT,
		id_number             TEXT     NOT NULL,
		full_name             TEXT     NOT NULL,
		email                 TEXT     NOT NULL DEFAULT '',
		phone                 TEXT     NOT NULL DEFAULT '',
		destination           TEXT     NOT NULL DEFAULT '',
		purpose               TEXT     NOT NULL DEFAULT '',
		host_name             TEXT     NOT NULL DEFAULT '',
		invite_id             TEXT     REFERENCES invites(id),
		decision              TEXT     NOT NULL DEFAULT 'approved',
		status                TEXT     NOT NULL,
		checkout_requested_at DATETIME,
		checkout_requested_by TEXT     NOT NULL DEFAULT '',
		created_at            DATETIME NOT NULL,
		checked_out_at        DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_open_identity
		ON visits(id_number) WHERE checked_out_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_code
		ON visits(code) WHERE code IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_invite
		ON visits(invite_id) WHERE invite_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS checkout_requests (
		id                TEXT     PRIMARY KEY,
		visit_id          TEXT     NOT NULL REFERENCES visits(id),
		visitor_name      TEXT     NOT NULL,
		visitor_id_number TEXT     NOT NULL,
		host_name         TEXT     NOT NULL,
		host_key          TEXT     NOT NULL,
		code              TEXT     NOT NULL DEFAULT '',
		status            TEXT     NOT NULL DEFAULT 'requested',
		requested_at      DATETIME NOT NULL,
		finalized_at      DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_checkout_requests_active
		ON checkout_requests(visit_id) WHERE status = 'requested'`,
	`CREATE TABLE IF NOT EXISTS events (
		id          TEXT     PRIMARY KEY,
		visit_id    TEXT     NOT NULL REFERENCES visits(id),
		type        TEXT     NOT NULL,
		note        TEXT     NOT NULL DEFAULT '',
		meta        TEXT     NOT NULL DEFAULT '{}',
		occurred_at DATETIME NOT NULL,
		UNIQUE (visit_id, type)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT     PRIMARY KEY,
		role       TEXT     NOT NULL,
		title      TEXT     NOT NULL,
		body       TEXT     NOT NULL,
		level      TEXT     NOT NULL,
		visit_code TEXT     NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		read_at    DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_role
		ON notifications(role, created_at)`,
}

// migrate runs all migrations in order.
func migrate(database *sql.DB) error {
	for i, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
