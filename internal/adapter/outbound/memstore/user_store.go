// Package memstore provides in-memory implementations of the Record Store
// ports, used for tests. DB_PATH=:memory: is served by sqlitestore, not here.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

// UserStore implements auth.UserStore with an in-memory map, copying records
// in and out so callers can never mutate store state through a returned
// pointer.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// NewUserStore creates an empty in-memory UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*auth.User)}
}

func copyUser(u *auth.User) *auth.User {
	out := *u
	out.Emails = append([]auth.Email(nil), u.Emails...)
	out.Groups = append([]string(nil), u.Groups...)
	if u.PasswordVerifier != nil {
		v := *u.PasswordVerifier
		out.PasswordVerifier = &v
	}
	return &out
}

func (s *UserStore) Get(_ context.Context, id string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *UserStore) FindByUserName(_ context.Context, userName string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.UserName, userName) {
			return copyUser(u), nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *UserStore) List(_ context.Context, filter auth.Filter) ([]auth.User, error) {
	if !isSupportedUserFilterAttr(filter.Attr) {
		return nil, auth.ErrBadFilter
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []auth.User
	for _, u := range s.users {
		if !matchesUserFilter(u, filter) {
			continue
		}
		out = append(out, *copyUser(u))
	}
	return out, nil
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
	case "":
		return true
	case "userName":
		return strings.EqualFold(u.UserName, filter.Value)
	case "department":
		return u.Department == filter.Value
	case "active":
		return (filter.Value == "true") == u.Active
	default:
		return false
	}
}

// Upsert stores a copy of u, keyed by u.ID, rejecting a userName collision
// with a different user the same way the SQLite store's unique index does.
func (s *UserStore) Upsert(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.users {
		if id != u.ID && strings.EqualFold(existing.UserName, u.UserName) {
			return auth.ErrDuplicateUserName
		}
	}

	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *UserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

var _ auth.UserStore = (*UserStore)(nil)
