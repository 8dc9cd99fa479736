package auth

import "context"

// Filter is the parsed form of a SCIM list filter of the single supported
// shape `attr eq "literal"`. An empty Attr means no filter: list everything.
type Filter struct {
	Attr  string
	Value string
}

// UserStore is the Record Store port for User resources: get by id, find by
// the unique secondary key (userName), list with filter, upsert, delete.
type UserStore interface {
	Get(ctx context.Context, id string) (*User, error)
	FindByUserName(ctx context.Context, userName string) (*User, error)
	List(ctx context.Context, filter Filter) ([]User, error)
	Upsert(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// GroupStore is the Record Store port for Group resources.
type GroupStore interface {
	Get(ctx context.Context, id string) (*Group, error)
	FindByDisplayName(ctx context.Context, displayName string) (*Group, error)
	List(ctx context.Context, filter Filter) ([]Group, error)
	Upsert(ctx context.Context, g *Group) error
	Delete(ctx context.Context, id string) error
}

// ClientStore is the Record Store port for client_credentials principals.
// Clients are seeded from configuration at startup; there is no SCIM surface
// for them, so the port is narrower than UserStore/GroupStore.
type ClientStore interface {
	Get(ctx context.Context, clientID string) (*Client, error)
	Upsert(ctx context.Context, c *Client) error
}
