// Package gmail wraps Google OAuth2 and the Gmail API for a single user token.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeModify grants read and label changes on the mailbox.
const ScopeModify = "https://www.googleapis.com/auth/gmail.modify"

// ErrNotConfigured is returned when no OAuth client secrets file is set.
var ErrNotConfigured = errors.New("gmail: oauth client secrets file is not configured")

// Authorizer drives the authorization-code flow for installed-app clients.
type Authorizer struct {
	conf *oauth2.Config
	// client, when set, is used for token endpoint calls.
	client *http.Client
}

// LoadAuthorizer reads client secrets from path.
func LoadAuthorizer(path, redirectURL string, scopes []string) (*Authorizer, error) {
	if path == "" {
		return nil, ErrNotConfigured
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gmail: read client secrets: %w", err)
	}
	return NewAuthorizer(raw, redirectURL, scopes)
}

// NewAuthorizer parses client secrets JSON as downloaded from the Google console.
func NewAuthorizer(secretJSON []byte, redirectURL string, scopes []string) (*Authorizer, error) {
	if len(scopes) == 0 {
		scopes = []string{ScopeModify}
	}
	conf, err := google.ConfigFromJSON(secretJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("gmail: parse client secrets: %w", err)
	}
	if redirectURL != "" {
		conf.RedirectURL = redirectURL
	}
	return &Authorizer{conf: conf}, nil
}

// NewAuthorizerFromConfig uses an existing oauth2.Config. client may be nil.
func NewAuthorizerFromConfig(conf *oauth2.Config, client *http.Client) *Authorizer {
	return &Authorizer{conf: conf, client: client}
}

// AuthURL returns the consent page URL carrying state. Offline access and
// forced consent make Google return a refresh token every time.
func (a *Authorizer) AuthURL(state string) string {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange redeems an authorization code.
func (a *Authorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := a.conf.Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("gmail: exchange code: %w", err)
	}
	return tok, nil
}

// Refresh returns a fresh token for an expired one that carries a refresh token.
func (a *Authorizer) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok == nil || tok.RefreshToken == "" {
		return nil, errors.New("gmail: token is not refreshable")
	}
	expired := *tok
	expired.AccessToken = ""
	fresh, err := a.conf.TokenSource(a.withClient(ctx), &expired).Token()
	if err != nil {
		return nil, fmt.Errorf("gmail: refresh token: %w", err)
	}
	return fresh, nil
}

// TokenSource returns a source that refreshes tok as needed.
func (a *Authorizer) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return a.conf.TokenSource(a.withClient(ctx), tok)
}

func (a *Authorizer) withClient(ctx context.Context) context.Context {
	if a.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}
