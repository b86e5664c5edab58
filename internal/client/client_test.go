package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/karibu-campus/karibu/internal/escalation"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
)

func TestCreateInvite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/invites" {
			t.Errorf("path = %q, want /api/invites", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		var in invite.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.HostName != "Dr. Jane Mwangi" {
			t.Errorf("host_name = %q", in.HostName)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(&invite.Invite{ID: "inv-1", Code: "ABC1234"}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	inv, err := c.CreateInvite(invite.CreateInput{HostName: "Dr. Jane Mwangi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.Code != "ABC1234" {
		t.Errorf("code = %q", inv.Code)
	}
}

func TestListInvitesHostQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("host") != "jane" {
			t.Errorf("host = %q, want jane", r.URL.Query().Get("host"))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode([]*invite.Invite{}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.ListInvites("jane"); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestCheckIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/checkins" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["code"] != "ABC1234" {
			t.Errorf("code = %q", body["code"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(&visit.Visit{ID: "v-1", Status: visit.StatusCheckedIn}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	v, err := c.CheckIn("ABC1234")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if v.Status != visit.StatusCheckedIn {
		t.Errorf("status = %q", v.Status)
	}
}

func TestSweep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sweep" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(&escalation.Result{Evaluated: 2, Fired: 1}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Evaluated != 2 || result.Fired != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestListNotificationsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("role") != "SECURITY" {
			t.Errorf("role = %q", r.URL.Query().Get("role"))
		}
		if r.URL.Query().Get("unread") != "1" {
			t.Errorf("unread = %q, want 1", r.URL.Query().Get("unread"))
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode([]*notification.Notification{{ID: "n-1"}}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	notifications, err := c.ListNotifications(notification.RoleSecurity, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notifications) != 1 {
		t.Errorf("got %d notifications, want 1", len(notifications))
	}
}

func TestErrorBodySurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"kind":"conflict","reason":"already_checked_in","message":"invite ABC1234 was already used"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.CheckIn("ABC1234")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "already used") {
		t.Errorf("error = %v, want server message surfaced", err)
	}
}

func TestErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Sweep()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "server error") {
		t.Errorf("error = %v, want generic server error", err)
	}
}

func TestConfirmExit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/visits/v-1/exit" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"exit_confirmed"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.ConfirmExit("v-1"); err != nil {
		t.Fatalf("confirm exit: %v", err)
	}
}

func TestClientTimeoutConfigured(t *testing.T) {
	c := New("http://localhost:0")
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", c.httpClient.Timeout)
	}
}
