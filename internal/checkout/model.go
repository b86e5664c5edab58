// Package checkout coordinates the host-initiated exit countdown and its
// security-confirmed finalization.
package checkout

import "time"

// Status represents the lifecycle of a checkout request.
type Status string

const (
	// StatusRequested indicates the exit clock is running.
	StatusRequested Status = "requested"
	// StatusFinalized indicates security confirmed the exit.
	StatusFinalized Status = "finalized"
	// StatusCancelled indicates the request was withdrawn.
	StatusCancelled Status = "cancelled"
)

// Request records a host starting the exit countdown for a visit. At most
// one requested Request exists per open visit; starting the clock twice
// neither resets nor duplicates it.
type Request struct {
	ID              string     `json:"id"`
	VisitID         string     `json:"visit_id"`
	VisitorName     string     `json:"visitor_name"`
	VisitorIDNumber string     `json:"visitor_id_number"`
	HostName        string     `json:"host_name"`
	HostKey         string     `json:"host_key"`
	Code            string     `json:"code,omitempty"`
	Status          Status     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	FinalizedAt     *time.Time `json:"finalized_at,omitempty"`
}
