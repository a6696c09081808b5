package router

import (
	"errors"
	"fmt"
	"testing"
)

type codedError struct{ code string }

func (e *codedError) Error() string { return "coded" }
func (e *codedError) Code() string  { return e.code }

func TestDeriveErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("redmine: %w", &codedError{code: "not found"})
	if got := deriveErrorCode(wrapped); got != "NOT_FOUND" {
		t.Fatalf("deriveErrorCode(wrapped) = %q", got)
	}
	if got := deriveErrorCode(errors.New("plain")); got != "ERRORSTRING" {
		t.Fatalf("deriveErrorCode(plain) = %q", got)
	}
	if got := deriveErrorCode(nil); got != "" {
		t.Fatalf("deriveErrorCode(nil) = %q", got)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{
		"/Gmail_Labels": "gmail_labels",
		"":              "unknown",
		"awaiting data": "awaiting_data",
	}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
