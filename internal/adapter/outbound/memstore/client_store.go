package memstore

import (
	"context"
	"sync"

	"github.com/aegisgate/identityd/internal/domain/auth"
)

// ClientStore implements auth.ClientStore with an in-memory map. Clients are
// seeded once at startup from configuration, so this store sees writes only
// at boot, not from request handlers.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*auth.Client
}

// NewClientStore creates an empty in-memory ClientStore.
func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]*auth.Client)}
}

func copyClient(c *auth.Client) *auth.Client {
	out := *c
	out.Scope = append([]string(nil), c.Scope...)
	return &out
}

func (s *ClientStore) Get(_ context.Context, clientID string) (*auth.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, auth.ErrClientNotFound
	}
	return copyClient(c), nil
}

func (s *ClientStore) Upsert(_ context.Context, c *auth.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.ClientID] = copyClient(c)
	return nil
}

var _ auth.ClientStore = (*ClientStore)(nil)
