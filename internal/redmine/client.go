// Package redmine is a minimal Redmine REST API client: issues and their time entries.
package redmine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "redmine: " + e.Status
}

// Code is used for error codes in handler logs.
func (e *StatusError) Code() string {
	return fmt.Sprintf("redmine_http_%d", e.StatusCode)
}

// Ref is a reference to another Redmine object such as a user or status.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Issue holds the issue fields the bot renders.
type Issue struct {
	ID              int      `json:"id"`
	Subject         string   `json:"subject"`
	Status          Ref      `json:"status"`
	AssignedTo      *Ref     `json:"assigned_to"`
	SpentHours      float64  `json:"spent_hours"`
	TotalSpentHours *float64 `json:"total_spent_hours"`
}

// Spent returns total spent hours including subtasks when the server reports them.
func (i *Issue) Spent() float64 {
	if i.TotalSpentHours != nil {
		return *i.TotalSpentHours
	}
	return i.SpentHours
}

// TimeEntry is one logged piece of work.
type TimeEntry struct {
	ID       int     `json:"id"`
	Hours    float64 `json:"hours"`
	SpentOn  string  `json:"spent_on"`
	User     Ref     `json:"user"`
	Comments string  `json:"comments"`
}

// Client talks to one Redmine instance with one API key.
type Client struct {
	base *url.URL
	key  string
	http *http.Client
}

// New validates address and returns a client. hc may be nil.
func New(address, key string, hc *http.Client) (*Client, error) {
	address = strings.TrimSpace(address)
	if address == "" || strings.TrimSpace(key) == "" {
		return nil, errors.New("redmine: address and key are required")
	}
	base, err := url.Parse(strings.TrimRight(address, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("redmine: invalid address %q", address)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: base, key: strings.TrimSpace(key), http: hc}, nil
}

// Issue fetches a single issue.
func (c *Client) Issue(ctx context.Context, id string) (*Issue, error) {
	var out struct {
		Issue Issue `json:"issue"`
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return nil, fmt.Errorf("redmine: invalid issue id %q", id)
	}
	// url.URL escapes Path itself when the request URL is rendered.
	if err := c.get(ctx, "issues/"+id+".json", nil, &out); err != nil {
		return nil, err
	}
	return &out.Issue, nil
}

// TimeEntries lists time entries logged on an issue.
func (c *Client) TimeEntries(ctx context.Context, issueID string) ([]TimeEntry, error) {
	var out struct {
		TimeEntries []TimeEntry `json:"time_entries"`
	}
	q := url.Values{"issue_id": {strings.TrimSpace(issueID)}, "limit": {"100"}}
	if err := c.get(ctx, "time_entries.json", q, &out); err != nil {
		return nil, err
	}
	return out.TimeEntries, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("redmine: build request: %w", err)
	}
	req.Header.Set("X-Redmine-API-Key", c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("redmine: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("redmine: decode %s: %w", path, err)
	}
	return nil
}
