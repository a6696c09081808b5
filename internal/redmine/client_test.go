package redmine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/redmine/issues/123.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Redmine-API-Key") != "key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"issue":{"id":123,"subject":"Fix login","status":{"id":2,"name":"In Progress"},
			"assigned_to":{"id":5,"name":"Jane Doe"},"spent_hours":1.5,"total_spent_hours":2.25}}`))
	})
	mux.HandleFunc("/redmine/time_entries.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("issue_id") != "123" {
			t.Errorf("issue_id = %q", r.URL.Query().Get("issue_id"))
		}
		_, _ = w.Write([]byte(`{"time_entries":[{"id":1,"hours":0.5,"spent_on":"2024-03-01","user":{"id":5,"name":"Jane Doe"}}],"total_count":1}`))
	})
	return httptest.NewServer(mux)
}

func TestIssueAndTimeEntries(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, err := New(srv.URL+"/redmine", "key-1", srv.Client())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	issue, err := c.Issue(ctx, "123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if issue.Subject != "Fix login" || issue.Status.Name != "In Progress" || issue.AssignedTo.Name != "Jane Doe" {
		t.Fatalf("unexpected issue: %+v", issue)
	}
	if issue.Spent() != 2.25 {
		t.Fatalf("Spent() = %v", issue.Spent())
	}

	entries, err := c.TimeEntries(ctx, "123")
	if err != nil {
		t.Fatalf("TimeEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].SpentOn != "2024-03-01" || entries[0].Hours != 0.5 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestIssueHTTPError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c, _ := New(srv.URL+"/redmine/", "key-1", srv.Client())
	_, err := c.Issue(context.Background(), "999")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Issue(999) error = %v", err)
	}

	bad, _ := New(srv.URL+"/redmine", "wrong", srv.Client())
	if _, err := bad.Issue(context.Background(), "123"); !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Issue() with wrong key error = %v", err)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New("", "k", nil); err == nil {
		t.Fatal("expected error for empty address")
	}
	if _, err := New("not a url", "k", nil); err == nil {
		t.Fatal("expected error for address without host")
	}
}

func TestIssueIDEscapedOnce(t *testing.T) {
	var gotPath, gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotRaw = r.URL.Path, r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"issue":{"id":1,"subject":"x","status":{"id":1,"name":"New"}}}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "key-1", srv.Client())
	if _, err := c.Issue(context.Background(), "1%1"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if gotPath != "/issues/1%1.json" || gotRaw != "/issues/1%251.json" {
		t.Fatalf("path = %q raw = %q", gotPath, gotRaw)
	}
}

func TestIssueRejectsPathLikeIDs(t *testing.T) {
	c, _ := New("https://redmine.example.com", "key-1", nil)
	for _, id := range []string{"", "1/../2", "1?x=2", "3#frag"} {
		if _, err := c.Issue(context.Background(), id); err == nil {
			t.Fatalf("Issue(%q) accepted", id)
		}
	}
}
