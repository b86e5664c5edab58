package escalation

import (
	"context"
	"log/slog"
	"time"

	"github.com/karibu-campus/karibu/internal/notification"
)

// Deliverer forwards a stored notification out of band. Delivery failures
// are logged, never propagated: the notification row is already committed.
type Deliverer interface {
	Deliver(n *notification.Notification) error
}

// Sweeper evaluates open, clock-running visits against the threshold table.
// It is a pure function of current time and store state: running it again
// with no elapsed time produces nothing new, so it is safe to trigger from
// a schedule and on demand simultaneously.
type Sweeper struct {
	repo  *Repository
	relay Deliverer // may be nil
}

// NewSweeper creates a sweeper. relay may be nil.
func NewSweeper(repo *Repository, relay Deliverer) *Sweeper {
	return &Sweeper{repo: repo, relay: relay}
}

// Result summarizes one sweep pass.
type Result struct {
	Evaluated int `json:"evaluated"`
	Fired     int `json:"fired"`
	Failed    int `json:"failed"`
}

// Run performs one sweep at the given instant. Every crossed-but-unfired
// threshold is processed in this single pass, so a sweep after a long gap
// retroactively fires everything skipped since the last one, each
// exactly once. A persistence failure on one visit is isolated: remaining
// visits are still evaluated and the failed visit's thresholds stay pending
// for the next sweep.
func (s *Sweeper) Run(now time.Time) (*Result, error) {
	candidates, err := s.repo.ClockRunning()
	if err != nil {
		return nil, err
	}

	result := &Result{Evaluated: len(candidates)}
	for _, c := range candidates {
		elapsedMin := now.Sub(c.RequestedAt).Minutes()
		if err := s.sweepVisit(c, elapsedMin, now, result); err != nil {
			result.Failed++
			slog.Error("sweep failed for visit, continuing", "visit_id", c.VisitID, "error", err)
		}
	}
	if result.Fired > 0 || result.Failed > 0 {
		slog.Info("sweep complete", "evaluated", result.Evaluated, "fired", result.Fired, "failed", result.Failed)
	}
	return result, nil
}

func (s *Sweeper) sweepVisit(c Candidate, elapsedMin float64, now time.Time, result *Result) error {
	for _, th := range Thresholds {
		if elapsedMin < float64(th.MinMinutes) {
			continue
		}
		fired, n, err := s.repo.Fire(c, th, elapsedMin, now)
		if err != nil {
			return err
		}
		if !fired {
			continue
		}
		result.Fired++
		slog.Info("threshold fired", "visit_id", c.VisitID, "type", th.EventType(),
			"role", th.Role, "elapsed_min", int(elapsedMin))
		if s.relay != nil {
			if err := s.relay.Deliver(n); err != nil {
				slog.Warn("notification relay failed", "notification_id", n.ID, "error", err)
			}
		}
	}
	return nil
}

// RunEvery invokes the sweeper on a fixed interval until ctx is cancelled.
// On-demand sweeps may run concurrently; the ledger keeps the overlap safe.
func (s *Sweeper) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(time.Now()); err != nil {
				slog.Error("scheduled sweep failed", "error", err)
			}
		}
	}
}
