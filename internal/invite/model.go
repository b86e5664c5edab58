// Package invite provides host pre-registration of visitors: the invite
// domain model, data access, and the create/cancel operations.
package invite

import (
	"strings"
	"time"
)

// Status represents the lifecycle status of an invite.
type Status string

const (
	// StatusPending indicates an invite is waiting to be used at the gate.
	StatusPending Status = "pending"
	// StatusCheckedIn indicates the invite was consumed by a check-in.
	StatusCheckedIn Status = "checked_in"
	// StatusCancelled indicates the host withdrew the invite before use.
	StatusCancelled Status = "cancelled"
)

// MaxPerHostPerDay is the cap on non-cancelled invites a host may hold for
// a single calendar day.
const MaxPerHostPerDay = 4

// Invite represents a host's pre-registration of a visitor for a specific
// day, identified by a short code.
type Invite struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	HostName        string     `json:"host_name"`
	HostKey         string     `json:"host_key"`
	VisitorName     string     `json:"visitor_name"`
	VisitorIDNumber string     `json:"visitor_id_number"`
	Purpose         string     `json:"purpose"`
	Destination     string     `json:"destination,omitempty"`
	ForDate         string     `json:"for_date"` // YYYY-MM-DD
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	CheckedInAt     *time.Time `json:"checked_in_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

// NormalizeHostKey reduces a host's display name to a stable key: trimmed,
// lower-cased, inner whitespace collapsed, non-alphanumerics dropped, and
// spaces replaced with underscores. "Dr.  Jane  Mwangi" and "dr jane mwangi"
// map to the same key.
func NormalizeHostKey(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}

// DateOf formats t as the calendar day used for invite scoping.
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
