// Package notification stores role-addressed alerts produced by threshold
// crossings and relays them by email when SMTP is configured.
package notification

import "time"

// Role is the audience a notification is addressed to.
type Role string

const (
	RoleSecurity Role = "SECURITY"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether the role is one karibu addresses.
func (r Role) Valid() bool { return r == RoleSecurity || r == RoleAdmin }

// Level is the display severity of a notification.
type Level string

const (
	LevelWarn   Level = "warn"
	LevelDanger Level = "danger"
)

// Notification is one alert for a role-scoped dashboard.
type Notification struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Level     Level      `json:"level"`
	VisitCode string     `json:"visit_code,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
