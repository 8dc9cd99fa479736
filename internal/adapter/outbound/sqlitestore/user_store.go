package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

// UserStore implements auth.UserStore over the "users" table.
type UserStore struct {
	db *sql.DB
}

func (s *UserStore) Get(ctx context.Context, id string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *UserStore) FindByUserName(ctx context.Context, userName string) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM users WHERE user_name = ? COLLATE NOCASE`, userName)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("sqlitestore: scan user: %w", err)
	}
	var s storedUser
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("sqlitestore: decode user: %w", err)
	}
	return s.toDomain(), nil
}

func (s *UserStore) List(ctx context.Context, filter auth.Filter) ([]auth.User, error) {
	if !isSupportedUserFilterAttr(filter.Attr) {
		return nil, auth.ErrBadFilter
	}

	query, arg := listQuery("users", filter)
	rows, err := s.db.QueryContext(ctx, query, arg...)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list users: %w", err)
	}
	defer rows.Close()

	var out []auth.User
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan user row: %w", err)
		}
		var s storedUser
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode user row: %w", err)
		}
		u := s.toDomain()
		if matchesUserFilter(u, filter) {
			out = append(out, *u)
		}
	}
	return out, rows.Err()
}

// listQuery returns a query selecting all documents in table, plus the
// narrowing WHERE clause and args for the indexed columns this store
// supports; the residual filter predicates (e.g. department, active) that
// have no dedicated column are applied in Go after decoding, same as List
// does above.
func listQuery(table string, filter auth.Filter) (string, []any) {
	switch {
	case table == "users" && filter.Attr == "userName":
		return `SELECT data FROM users WHERE user_name = ? COLLATE NOCASE`, []any{filter.Value}
	case table == "groups" && filter.Attr == "displayName":
		return `SELECT data FROM groups WHERE display_name = ? COLLATE NOCASE`, []any{filter.Value}
	default:
		return fmt.Sprintf(`SELECT data FROM %s`, table), nil
	}
}

func isSupportedUserFilterAttr(attr string) bool {
	switch attr {
	case "", "userName", "department", "active":
		return true
	default:
		return false
	}
}

func matchesUserFilter(u *auth.User, filter auth.Filter) bool {
	switch filter.Attr {
	case "", "userName":
		return true // userName already narrowed by the SQL WHERE clause, or no filter
	case "department":
		return u.Department == filter.Value
	case "active":
		return (filter.Value == "true") == u.Active
	default:
		return false
	}
}

func (s *UserStore) Upsert(ctx context.Context, u *auth.User) error {
	data, err := json.Marshal(toStoredUser(u))
	if err != nil {
		return fmt.Errorf("sqlitestore: encode user: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, user_name, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_name = excluded.user_name, data = excluded.data
	`, u.ID, u.UserName, string(data))
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateUserName
		}
		return fmt.Errorf("sqlitestore: upsert user: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitestore: delete user: %w", err)
	}
	if n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ auth.UserStore = (*UserStore)(nil)
