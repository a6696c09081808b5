package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type sqlStore struct {
	db        *sqlx.DB
	loadQuery string
	saveQuery string
}

// NewSQLStore returns a Store over the user_state table. The same queries
// run on Postgres and SQLite; placeholders are rebound for the driver.
func NewSQLStore(db *sqlx.DB) Store {
	return &sqlStore{
		db:        db,
		loadQuery: db.Rebind(`SELECT data FROM user_state WHERE user_id = ?`),
		saveQuery: db.Rebind(`INSERT INTO user_state (user_id, data, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`),
	}
}

func (s *sqlStore) Load(ctx context.Context, userID int64) ([]byte, bool, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.loadQuery, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load user state %d: %w", userID, err)
	}
	return []byte(data), true, nil
}

// Save passes the record as text so Postgres can cast it into JSONB.
func (s *sqlStore) Save(ctx context.Context, userID int64, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.saveQuery, userID, string(data)); err != nil {
		return fmt.Errorf("save user state %d: %w", userID, err)
	}
	return nil
}
