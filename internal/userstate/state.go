// Package userstate models what the bot remembers about each user: pending
// prompts, OAuth progress and credentials for the remote services.
package userstate

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ErrEmptyQueue is returned by Consume when nothing is awaited.
var ErrEmptyQueue = errors.New("prompt queue is empty")

// ErrUnknownService is returned by Reset for names other than gmail, redmine and otrs.
var ErrUnknownService = errors.New("unknown service")

// Prompt is a value the bot waits for and the text that asks for it.
type Prompt struct {
	Field Field  `json:"field"`
	Text  string `json:"text"`
}

// GmailState tracks the OAuth2 authorization-code flow.
type GmailState struct {
	Token *oauth2.Token `json:"token,omitempty"`
	// OAuthState is the anti-forgery state of the last issued authorization URL.
	OAuthState string `json:"oauth_state,omitempty"`
	AuthCode   string `json:"auth_code,omitempty"`
	// CodeState is the OAuthState that was current when AuthCode arrived.
	CodeState string `json:"code_state,omitempty"`
}

// RedmineState holds Redmine REST credentials.
type RedmineState struct {
	Address string `json:"address,omitempty"`
	AuthKey string `json:"auth_key,omitempty"`
}

// OTRSState holds OTRS GenericInterface credentials.
type OTRSState struct {
	Address  string `json:"address,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// UserState is the per-user record. The zero value is a fresh user.
type UserState struct {
	Prompts []Prompt     `json:"prompts,omitempty"`
	Gmail   GmailState   `json:"gmail"`
	Redmine RedmineState `json:"redmine"`
	OTRS    OTRSState    `json:"otrs"`
}

// Set stores value into the field.
func (s *UserState) Set(f Field, value string) error {
	def, ok := fields[f]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	def.set(s, value)
	return nil
}

// Value returns the current value of the field.
func (s *UserState) Value(f Field) string {
	def, ok := fields[f]
	if !ok {
		return ""
	}
	return def.get(s)
}

// Missing returns the fields among want that hold no value, in the given order.
func (s *UserState) Missing(want ...Field) []Field {
	var out []Field
	for _, f := range want {
		if s.Value(f) == "" {
			out = append(out, f)
		}
	}
	return out
}

// Pending reports whether f is already awaited.
func (s *UserState) Pending(f Field) bool {
	for _, p := range s.Prompts {
		if p.Field == f {
			return true
		}
	}
	return false
}

// Await appends a prompt unless the field is already awaited. It reports
// whether the queue grew.
func (s *UserState) Await(f Field, text string) bool {
	if !f.Valid() || s.Pending(f) {
		return false
	}
	s.Prompts = append(s.Prompts, Prompt{Field: f, Text: text})
	return true
}

// Head returns the oldest pending prompt.
func (s *UserState) Head() (Prompt, bool) {
	if len(s.Prompts) == 0 {
		return Prompt{}, false
	}
	return s.Prompts[0], true
}

// Consume pops the head prompt and stores value into its field.
func (s *UserState) Consume(value string) (Prompt, error) {
	head, ok := s.Head()
	if !ok {
		return Prompt{}, ErrEmptyQueue
	}
	if err := s.Set(head.Field, value); err != nil {
		return Prompt{}, err
	}
	s.Prompts = s.Prompts[1:]
	if len(s.Prompts) == 0 {
		s.Prompts = nil
	}
	return head, nil
}

// ClearPrompts drops every pending prompt and returns how many there were.
func (s *UserState) ClearPrompts() int {
	n := len(s.Prompts)
	s.Prompts = nil
	return n
}

// Reset forgets everything stored for one service, including its pending prompts.
func (s *UserState) Reset(service string) error {
	switch service {
	case ServiceGmail:
		s.Gmail = GmailState{}
	case ServiceRedmine:
		s.Redmine = RedmineState{}
	case ServiceOTRS:
		s.OTRS = OTRSState{}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	kept := s.Prompts[:0]
	for _, p := range s.Prompts {
		if p.Field.Service() != service {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	s.Prompts = kept
	return nil
}
