// Package escalation implements the overstay sweep: it evaluates elapsed
// time on open, clock-running visits against an ordered severity table and
// fires each crossed threshold exactly once per visit.
package escalation

import (
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
)

// Threshold is one row of the escalation table: after MinMinutes of elapsed
// countdown, the role is owed a notification and the visit's status
// advances to Status.
type Threshold struct {
	MinMinutes int
	Role       notification.Role
	Status     visit.Status
	Level      notification.Level
	Title      string
}

// EventType is the ledger key for the threshold; it matches the status the
// threshold advances the visit to.
func (t Threshold) EventType() string { return string(t.Status) }

// Thresholds is the fixed escalation table, in ascending order. It is not
// user-configurable.
var Thresholds = []Threshold{
	{MinMinutes: 10, Role: notification.RoleSecurity, Status: visit.StatusOverdue10, Level: notification.LevelWarn, Title: "Visitor overdue (10m)"},
	{MinMinutes: 13, Role: notification.RoleSecurity, Status: visit.StatusOverdue13, Level: notification.LevelWarn, Title: "Visitor overdue (13m)"},
	{MinMinutes: 15, Role: notification.RoleSecurity, Status: visit.StatusOverdue15, Level: notification.LevelDanger, Title: "Visitor overdue (15m)"},
	{MinMinutes: 16, Role: notification.RoleAdmin, Status: visit.StatusEscalated16, Level: notification.LevelDanger, Title: "Escalation: visitor overstayed"},
}
