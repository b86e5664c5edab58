// Package event provides the append-only audit trail for visits. The
// (visit_id, type) uniqueness of the ledger doubles as the idempotency
// guard for escalation: a given threshold fires at most once per visit
// lifetime.
package event

import (
	"encoding/json"
	"time"
)

// Event is one audit record for a visit.
type Event struct {
	ID         string         `json:"id"`
	VisitID    string         `json:"visit_id"`
	Type       string         `json:"type"`
	Note       string         `json:"note,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func encodeMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeMeta(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
