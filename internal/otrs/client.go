// Package otrs is a client for the OTRS GenericTicketConnectorREST web service.
package otrs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultWebservice is the web service name shipped with OTRS.
const DefaultWebservice = "GenericTicketConnectorREST"

const scriptPath = "nph-genericinterface.pl"

// APIError is an error reported by the GenericInterface in the response body.
type APIError struct {
	ErrorCode    string `json:"ErrorCode"`
	ErrorMessage string `json:"ErrorMessage"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("otrs: %s: %s", e.ErrorCode, e.ErrorMessage)
}

// Code is used for error codes in handler logs.
func (e *APIError) Code() string {
	return e.ErrorCode
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "otrs: " + e.Status
}

// Code is used for error codes in handler logs.
func (e *StatusError) Code() string {
	return fmt.Sprintf("otrs_http_%d", e.StatusCode)
}

// DynamicField is a custom ticket field. Value may be a string, a number, a list or null.
type DynamicField struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Article is a ticket article (email, note, phone call).
type Article struct {
	Subject      string `json:"Subject"`
	ArticleType  string `json:"ArticleType"`
	Created      string `json:"Created"`
	CreateTime   string `json:"CreateTime"`
	FromRealname string `json:"FromRealname"`
	// Channel and visibility replace ArticleType from OTRS 6 on.
	CommunicationChannel string      `json:"CommunicationChannel"`
	IsVisibleForCustomer json.Number `json:"IsVisibleForCustomer"`
}

// InternalNote reports whether the article is an agent-only note.
func (a Article) InternalNote() bool {
	if a.ArticleType != "" {
		return a.ArticleType == "note-internal"
	}
	return a.CommunicationChannel == "Internal" && a.IsVisibleForCustomer == "0"
}

// CreatedAt returns the creation timestamp as reported by the server.
func (a Article) CreatedAt() string {
	if a.Created != "" {
		return a.Created
	}
	return a.CreateTime
}

// Ticket holds the ticket fields the bot renders.
type Ticket struct {
	TicketID      string         `json:"TicketID"`
	TicketNumber  string         `json:"TicketNumber"`
	Title         string         `json:"Title"`
	State         string         `json:"State"`
	DynamicFields []DynamicField `json:"DynamicField"`
	Articles      []Article      `json:"Article"`
}

// DynamicField returns the value of the named dynamic field as text.
func (t *Ticket) DynamicField(name string) (string, bool) {
	for _, f := range t.DynamicFields {
		if f.Name != name || f.Value == nil {
			continue
		}
		switch v := f.Value.(type) {
		case string:
			return v, v != ""
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case []any:
			if len(v) > 0 {
				return fmt.Sprint(v[0]), true
			}
		}
	}
	return "", false
}

// Client talks to one OTRS instance.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for address, which may be the OTRS root URL or the
// full nph-genericinterface.pl URL. hc may be nil.
func New(address, webservice string, hc *http.Client) (*Client, error) {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	if address == "" {
		return nil, errors.New("otrs: address is required")
	}
	if webservice == "" {
		webservice = DefaultWebservice
	}
	if !strings.HasSuffix(address, scriptPath) {
		address += "/otrs/" + scriptPath
	}
	base, err := url.Parse(address + "/Webservice/" + url.PathEscape(webservice) + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("otrs: invalid address %q", address)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: base, http: hc}, nil
}

// Session is an authenticated agent session.
type Session struct {
	client *Client
	id     string
}

// CreateSession logs in as an agent.
func (c *Client) CreateSession(ctx context.Context, username, password string) (*Session, error) {
	body := map[string]string{"UserLogin": username, "Password": password}
	var out struct {
		SessionID string    `json:"SessionID"`
		Error     *APIError `json:"Error"`
	}
	if err := c.do(ctx, http.MethodPost, "Session", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if out.SessionID == "" {
		return nil, errors.New("otrs: empty session id")
	}
	return &Session{client: c, id: out.SessionID}, nil
}

// Ticket fetches a ticket with all articles and dynamic fields.
func (s *Session) Ticket(ctx context.Context, id int) (*Ticket, error) {
	q := url.Values{
		"SessionID":     {s.id},
		"AllArticles":   {"1"},
		"DynamicFields": {"1"},
	}
	var out struct {
		Ticket []Ticket  `json:"Ticket"`
		Error  *APIError `json:"Error"`
	}
	if err := s.client.do(ctx, http.MethodGet, "Ticket/"+strconv.Itoa(id), q, nil, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if len(out.Ticket) == 0 {
		return nil, fmt.Errorf("otrs: ticket %d not found", id)
	}
	return &out.Ticket[0], nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if q != nil {
		u.RawQuery = q.Encode()
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("otrs: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("otrs: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("otrs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("otrs: decode %s: %w", path, err)
	}
	return nil
}
