package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

// GroupStore implements auth.GroupStore with an in-memory map.
type GroupStore struct {
	mu     sync.RWMutex
	groups map[string]*auth.Group
}

// NewGroupStore creates an empty in-memory GroupStore.
func NewGroupStore() *GroupStore {
	return &GroupStore{groups: make(map[string]*auth.Group)}
}

func copyGroup(g *auth.Group) *auth.Group {
	out := *g
	out.Members = append([]auth.Member(nil), g.Members...)
	return &out
}

func (s *GroupStore) Get(_ context.Context, id string) (*auth.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, auth.ErrGroupNotFound
	}
	return copyGroup(g), nil
}

func (s *GroupStore) FindByDisplayName(_ context.Context, displayName string) (*auth.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if strings.EqualFold(g.DisplayName, displayName) {
			return copyGroup(g), nil
		}
	}
	return nil, auth.ErrGroupNotFound
}

func (s *GroupStore) List(_ context.Context, filter auth.Filter) ([]auth.Group, error) {
	if filter.Attr != "" && filter.Attr != "displayName" {
		return nil, auth.ErrBadFilter
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []auth.Group
	for _, g := range s.groups {
		if !matchesGroupFilter(g, filter) {
			continue
		}
		out = append(out, *copyGroup(g))
	}
	return out, nil
}

func matchesGroupFilter(g *auth.Group, filter auth.Filter) bool {
	if filter.Attr == "" {
		return true
	}
	return strings.EqualFold(g.DisplayName, filter.Value)
}

// Upsert stores a copy of g, keyed by g.ID, rejecting a displayName
// collision with a different group the same way the SQLite store's unique
// index does.
func (s *GroupStore) Upsert(_ context.Context, g *auth.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.groups {
		if id != g.ID && strings.EqualFold(existing.DisplayName, g.DisplayName) {
			return auth.ErrDuplicateDisplayName
		}
	}

	s.groups[g.ID] = copyGroup(g)
	return nil
}

func (s *GroupStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return auth.ErrGroupNotFound
	}
	delete(s.groups, id)
	return nil
}

var _ auth.GroupStore = (*GroupStore)(nil)
