package invite

import (
	"testing"
	"time"
)

func TestNormalizeHostKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dr. Jane Mwangi", "dr_jane_mwangi"},
		{"dr jane mwangi", "dr_jane_mwangi"},
		{"  DR.   JANE\tMWANGI  ", "dr_jane_mwangi"},
		{"O'Brien-Smith", "obriensmith"},
		{"Host 42", "host_42"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := NormalizeHostKey(tt.in); got != tt.want {
			t.Errorf("NormalizeHostKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHostKeyCollision(t *testing.T) {
	a := NormalizeHostKey("Dr.  Jane  Mwangi")
	b := NormalizeHostKey("dr jane mwangi!")
	if a != b {
		t.Errorf("expected same key, got %q and %q", a, b)
	}
}

func TestDateOf(t *testing.T) {
	// 23:30 UTC-3 is already the next day in UTC.
	loc := time.FixedZone("UTC-3", -3*60*60)
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)
	if got := DateOf(at); got != "2026-03-15" {
		t.Errorf("DateOf = %q, want 2026-03-15", got)
	}
}
