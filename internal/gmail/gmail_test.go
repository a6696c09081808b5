package gmail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

const installedSecret = `{"installed":{
	"client_id":"client-id.apps.googleusercontent.com",
	"client_secret":"shh",
	"auth_uri":"https://accounts.google.com/o/oauth2/auth",
	"token_uri":"https://oauth2.googleapis.com/token",
	"redirect_uris":["http://localhost"]
}}`

func TestNewAuthorizerBuildsConsentURL(t *testing.T) {
	a, err := NewAuthorizer([]byte(installedSecret), "urn:ietf:wg:oauth:2.0:oob", nil)
	if err != nil {
		t.Fatalf("NewAuthorizer() error = %v", err)
	}
	u, err := url.Parse(a.AuthURL("state-1"))
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	checks := map[string]string{
		"state":        "state-1",
		"access_type":  "offline",
		"prompt":       "consent",
		"client_id":    "client-id.apps.googleusercontent.com",
		"redirect_uri": "urn:ietf:wg:oauth:2.0:oob",
		"scope":        ScopeModify,
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestNewAuthorizerRejectsBadSecrets(t *testing.T) {
	if _, err := NewAuthorizer([]byte(`{}`), "", nil); err == nil {
		t.Fatal("expected error for empty secrets")
	}
	if _, err := LoadAuthorizer("", "", nil); err != ErrNotConfigured {
		t.Fatalf("LoadAuthorizer(\"\") error = %v", err)
	}
}

func tokenServer(t *testing.T, wantGrant string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != wantGrant {
			t.Errorf("grant_type = %q, want %q", got, wantGrant)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"token_type":    "Bearer",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}))
}

func testAuthorizer(srv *httptest.Server) *Authorizer {
	return NewAuthorizerFromConfig(&oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{ScopeModify},
	}, srv.Client())
}

func TestExchange(t *testing.T) {
	srv := tokenServer(t, "authorization_code")
	defer srv.Close()

	tok, err := testAuthorizer(srv).Exchange(context.Background(), "4/code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.AccessToken != "fresh-access" || tok.RefreshToken != "refresh-1" || !tok.Valid() {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	srv := tokenServer(t, "refresh_token")
	defer srv.Close()

	old := &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Hour)}
	tok, err := testAuthorizer(srv).Refresh(context.Background(), old)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tok.AccessToken != "fresh-access" || !tok.Valid() {
		t.Fatalf("unexpected token: %+v", tok)
	}

	if _, err := testAuthorizer(srv).Refresh(context.Background(), &oauth2.Token{AccessToken: "x"}); err == nil {
		t.Fatal("expected error for token without refresh token")
	}
}

func TestLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/users/me/labels") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"labels":[{"id":"INBOX","name":"INBOX"},{"id":"Label_7","name":"Archive"}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	labels, err := svc.Labels(ctx)
	if err != nil {
		t.Fatalf("Labels() error = %v", err)
	}
	if len(labels) != 2 || labels[0].Name != "Archive" || labels[1].ID != "INBOX" {
		t.Fatalf("Labels() = %+v", labels)
	}
}
