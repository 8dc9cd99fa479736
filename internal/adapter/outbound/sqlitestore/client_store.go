package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

// ClientStore implements auth.ClientStore over the "clients" table.
type ClientStore struct {
	db *sql.DB
}

func (s *ClientStore) Get(ctx context.Context, clientID string) (*auth.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM clients WHERE client_id = ?`, clientID)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrClientNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan client: %w", err)
	}
	var sc storedClient
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, fmt.Errorf("sqlitestore: decode client: %w", err)
	}
	return sc.toDomain(), nil
}

func (s *ClientStore) Upsert(ctx context.Context, c *auth.Client) error {
	data, err := json.Marshal(toStoredClient(c))
	if err != nil {
		return fmt.Errorf("sqlitestore: encode client: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clients (client_id, data) VALUES (?, ?)
		ON CONFLICT(client_id) DO UPDATE SET data = excluded.data
	`, c.ClientID, string(data))
	if err != nil {
		return fmt.Errorf("sqlitestore: upsert client: %w", err)
	}
	return nil
}

var _ auth.ClientStore = (*ClientStore)(nil)
