package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

// GroupStore implements auth.GroupStore over the "groups" table.
type GroupStore struct {
	db *sql.DB
}

func (s *GroupStore) Get(ctx context.Context, id string) (*auth.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM groups WHERE id = ?`, id)
	return scanGroup(row)
}

func (s *GroupStore) FindByDisplayName(ctx context.Context, displayName string) (*auth.Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM groups WHERE display_name = ? COLLATE NOCASE`, displayName)
	return scanGroup(row)
}

func scanGroup(row *sql.Row) (*auth.Group, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrGroupNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan group: %w", err)
	}
	var g auth.Group
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("sqlitestore: decode group: %w", err)
	}
	return &g, nil
}

func (s *GroupStore) List(ctx context.Context, filter auth.Filter) ([]auth.Group, error) {
	if filter.Attr != "" && filter.Attr != "displayName" {
		return nil, auth.ErrBadFilter
	}

	query, arg := listQuery("groups", filter)
	rows, err := s.db.QueryContext(ctx, query, arg...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list groups: %w", err)
	}
	defer rows.Close()

	var out []auth.Group
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan group row: %w", err)
		}
		var g auth.Group
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode group row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *GroupStore) Upsert(ctx context.Context, g *auth.Group) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode group: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO groups (id, display_name, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, data = excluded.data
	`, g.ID, g.DisplayName, string(data))
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateDisplayName
		}
		return fmt.Errorf("sqlitestore: upsert group: %w", err)
	}
	return nil
}

func (s *GroupStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: delete group: %w", err)
	}
	if n == 0 {
		return auth.ErrGroupNotFound
	}
	return nil
}

var _ auth.GroupStore = (*GroupStore)(nil)
