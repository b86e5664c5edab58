package event

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/karibu-campus/karibu/internal/db"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	// The ledger references visits.
	if _, err := database.Exec(`
		INSERT INTO visits (id, kind, id_number, full_name, status, created_at)
		VALUES ('v1', 'walkin', '12345678', 'Ledger Visitor', 'CHECKED_IN', ?)`,
		time.Now().UTC()); err != nil {
		t.Fatalf("insert visit: %v", err)
	}
	return NewRepository(database)
}

func TestAppendExactlyOnce(t *testing.T) {
	repo := testRepo(t)
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	inserted, err := repo.Append(&Event{VisitID: "v1", Type: "OVERDUE_10", OccurredAt: at})
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if !inserted {
		t.Fatal("first append should insert")
	}

	inserted, err = repo.Append(&Event{VisitID: "v1", Type: "OVERDUE_10", OccurredAt: at.Add(time.Minute)})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if inserted {
		t.Error("duplicate (visit, type) should not insert")
	}

	// A different type for the same visit is a separate ledger entry.
	inserted, err = repo.Append(&Event{VisitID: "v1", Type: "OVERDUE_13", OccurredAt: at})
	if err != nil {
		t.Fatalf("third append: %v", err)
	}
	if !inserted {
		t.Error("different type should insert")
	}
}

func TestHas(t *testing.T) {
	repo := testRepo(t)

	ok, err := repo.Has("v1", "OVERDUE_10")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if ok {
		t.Error("empty ledger should report false")
	}

	if _, err := repo.Append(&Event{VisitID: "v1", Type: "OVERDUE_10", OccurredAt: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}
	ok, err = repo.Has("v1", "OVERDUE_10")
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if !ok {
		t.Error("appended event should report true")
	}
}

func TestListByVisit(t *testing.T) {
	repo := testRepo(t)
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	if _, err := repo.Append(&Event{
		VisitID: "v1", Type: "OVERDUE_10",
		Note:       "Elapsed: 11m",
		Meta:       map[string]any{"elapsedMin": 11.0},
		OccurredAt: base,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := repo.Append(&Event{VisitID: "v1", Type: "OVERDUE_13", OccurredAt: base.Add(3 * time.Minute)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.ListByVisit("v1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "OVERDUE_10" || events[1].Type != "OVERDUE_13" {
		t.Errorf("order = %q, %q", events[0].Type, events[1].Type)
	}
	if events[0].Note != "Elapsed: 11m" {
		t.Errorf("note = %q", events[0].Note)
	}
	if got, ok := events[0].Meta["elapsedMin"].(float64); !ok || got != 11.0 {
		t.Errorf("meta elapsedMin = %v", events[0].Meta["elapsedMin"])
	}
	if events[1].Meta != nil {
		t.Errorf("empty meta should decode to nil, got %v", events[1].Meta)
	}
}
