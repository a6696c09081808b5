package state

import "context"

// Store loads and saves per-user records.
type Store interface {
	// Load returns the stored record and true, or nil and false when the
	// user has no record yet.
	Load(ctx context.Context, userID int64) ([]byte, bool, error)
	// Save replaces the user's record.
	Save(ctx context.Context, userID int64, data []byte) error
}
