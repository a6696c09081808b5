package userstate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m3rciful/workbot/core/telegram/state"
)

// Repository persists UserState as JSON in a state.Store.
type Repository struct {
	store state.Store
}

// NewRepository wraps store.
func NewRepository(store state.Store) *Repository {
	return &Repository{store: store}
}

// Load returns the user's state, or a zero UserState for a new user.
func (r *Repository) Load(ctx context.Context, userID int64) (*UserState, error) {
	raw, ok, err := r.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &UserState{}
	if !ok || len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("decode user state %d: %w", userID, err)
	}
	return st, nil
}

// Save writes the user's state.
func (r *Repository) Save(ctx context.Context, userID int64, st *UserState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode user state %d: %w", userID, err)
	}
	return r.store.Save(ctx, userID, raw)
}
