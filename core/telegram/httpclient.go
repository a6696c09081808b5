package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/workbot/core/netutil"
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Header wait and total timeout leave room for a long poll of pollTimeout.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	return netutil.NewClient(netutil.ClientOptions{
		Timeout:               pollTimeout + 20*time.Second,
		ResponseHeaderTimeout: pollTimeout + 5*time.Second,
		RetryAttempts:         3,
		RetryBackoff:          2 * time.Second,
	})
}
