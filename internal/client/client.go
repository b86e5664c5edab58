// Package client provides an HTTP client for the karibu REST API, for
// stations and scripts that talk to a running instance instead of opening
// the database directly.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/karibu-campus/karibu/internal/checkout"
	"github.com/karibu-campus/karibu/internal/escalation"
	"github.com/karibu-campus/karibu/internal/event"
	"github.com/karibu-campus/karibu/internal/invite"
	"github.com/karibu-campus/karibu/internal/notification"
	"github.com/karibu-campus/karibu/internal/visit"
)

// Client is an HTTP client for the karibu API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateInvite registers a pending invite for today.
func (c *Client) CreateInvite(in invite.CreateInput) (*invite.Invite, error) {
	var inv invite.Invite
	if err := c.post("/api/invites", in, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvites returns a host's invites, or today's when host is empty.
func (c *Client) ListInvites(host string) ([]*invite.Invite, error) {
	path := "/api/invites"
	if host != "" {
		path += "?host=" + host
	}
	var invites []*invite.Invite
	if err := c.get(path, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

// CancelInvite withdraws a pending invite.
func (c *Client) CancelInvite(id, hostName string) error {
	body := map[string]string{"host_name": hostName}
	return c.post("/api/invites/"+id+"/cancel", body, nil)
}

// CheckIn admits the visitor holding the invite code.
func (c *Client) CheckIn(code string) (*visit.Visit, error) {
	body := map[string]string{"code": code}
	var v visit.Visit
	if err := c.post("/api/checkins", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// RegisterWalkIn opens a visit for an uninvited arrival.
func (c *Client) RegisterWalkIn(in visit.WalkInInput) (*visit.Visit, error) {
	var v visit.Visit
	if err := c.post("/api/walkins", in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// StartCheckout begins the exit countdown for the visit carrying the code.
func (c *Client) StartCheckout(hostName, code string) (*checkout.Request, error) {
	body := map[string]string{"host_name": hostName, "code": code}
	var req checkout.Request
	if err := c.post("/api/checkouts", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ConfirmExit closes the visit at the gate.
func (c *Client) ConfirmExit(visitID string) error {
	return c.post("/api/visits/"+visitID+"/exit", struct{}{}, nil)
}

// ListOpenVisits returns every visitor currently on campus.
func (c *Client) ListOpenVisits() ([]*visit.Visit, error) {
	var visits []*visit.Visit
	if err := c.get("/api/visits", &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// VisitEvents returns a visit's audit ledger.
func (c *Client) VisitEvents(visitID string) ([]*event.Event, error) {
	var events []*event.Event
	if err := c.get("/api/visits/"+visitID+"/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Sweep triggers an on-demand escalation pass on the server.
func (c *Client) Sweep() (*escalation.Result, error) {
	var result escalation.Result
	if err := c.post("/api/sweep", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListNotifications returns a role's notifications, unread only when
// unreadOnly is set.
func (c *Client) ListNotifications(role notification.Role, unreadOnly bool) ([]*notification.Notification, error) {
	path := "/api/notifications?role=" + string(role)
	if unreadOnly {
		path += "&unread=1"
	}
	var notifications []*notification.Notification
	if err := c.get(path, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkNotificationRead stamps a notification as consumed.
func (c *Client) MarkNotificationRead(id string) error {
	return c.post("/api/notifications/"+id+"/read", struct{}{}, nil)
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, body any, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request and handles error bodies.
func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Kind    string `json:"kind"`
				Reason  string `json:"reason"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%s", errResp.Error.Message)
		}
		return fmt.Errorf("server error: %s", http.StatusText(resp.StatusCode))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
