// Package visit provides the live visitor record: the visit domain model,
// its status machine, data access, and the check-in operations that create
// visits from invites or walk-ins.
package visit

import "time"

// Kind records how a visit entered the system.
type Kind string

const (
	// KindInvite marks a visit created by consuming an invite.
	KindInvite Kind = "invite"
	// KindWalkin marks a visit registered directly at the gate.
	KindWalkin Kind = "walkin"
)

// Decision is the admission decision for a visit. Walk-ins are approved by
// policy at registration; there is no pending-review state.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Status is a visit's position in the lifecycle. From
// HOST_CHECKOUT_STARTED onward it doubles as a monotonically increasing
// severity marker; it never moves backward, and EXIT_CONFIRMED is terminal
// from any prior status.
type Status string

const (
	StatusPendingArrival      Status = "PENDING_ARRIVAL"
	StatusCheckedIn           Status = "CHECKED_IN"
	StatusHostCheckoutStarted Status = "HOST_CHECKOUT_STARTED"
	StatusOverdue10           Status = "OVERDUE_10"
	StatusOverdue13           Status = "OVERDUE_13"
	StatusOverdue15           Status = "OVERDUE_15"
	StatusEscalated16         Status = "ESCALATED_16"
	StatusExitConfirmed       Status = "EXIT_CONFIRMED"
)

// Severity ranks statuses for monotonic advancement. A sweep firing a lower
// threshold out of order must not regress the status.
func (s Status) Severity() int {
	switch s {
	case StatusPendingArrival:
		return 0
	case StatusCheckedIn:
		return 1
	case StatusHostCheckoutStarted:
		return 2
	case StatusOverdue10:
		return 3
	case StatusOverdue13:
		return 4
	case StatusOverdue15:
		return 5
	case StatusEscalated16:
		return 6
	case StatusExitConfirmed:
		return 7
	default:
		return -1
	}
}

// Visit represents a visitor's presence on campus, from check-in until the
// security-confirmed exit.
type Visit struct {
	ID                  string     `json:"id"`
	Kind                Kind       `json:"kind"`
	Code                string     `json:"code,omitempty"`
	IDNumber            string     `json:"id_number"`
	FullName            string     `json:"full_name"`
	Email               string     `json:"email,omitempty"`
	Phone               string     `json:"phone,omitempty"`
	Destination         string     `json:"destination,omitempty"`
	Purpose             string     `json:"purpose,omitempty"`
	HostName            string     `json:"host_name,omitempty"`
	InviteID            string     `json:"invite_id,omitempty"`
	Decision            Decision   `json:"decision"`
	Status              Status     `json:"status"`
	CheckoutRequestedAt *time.Time `json:"checkout_requested_at,omitempty"`
	CheckoutRequestedBy string     `json:"checkout_requested_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CheckedOutAt        *time.Time `json:"checked_out_at,omitempty"`
}

// Open reports whether the visitor is still on campus.
func (v *Visit) Open() bool { return v.CheckedOutAt == nil }

// ClockRunning reports whether the exit countdown has started and the visit
// is still open. Only clock-running visits are swept for escalation.
func (v *Visit) ClockRunning() bool { return v.Open() && v.CheckoutRequestedAt != nil }
