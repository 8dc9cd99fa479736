// Package auth contains the domain types for identity provisioning (SCIM-style
// Users and Groups) and credential verification.
package auth

import "time"

// Email is a single address on a User resource.
type Email struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary,omitempty"`
	Type    string `json:"type,omitempty"`
}

// Verifier is a stored credential verifier (Argon2id hash, never the cleartext).
type Verifier struct {
	Hash string `json:"hash"`
}

// Meta carries the SCIM-standard resource metadata block.
type Meta struct {
	ResourceType string    `json:"resourceType"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
	Location     string    `json:"location,omitempty"`
}

// User is the provisioning record for a single identity.
type User struct {
	ID               string    `json:"id"`
	UserName         string    `json:"userName"`
	GivenName        string    `json:"givenName,omitempty"`
	FamilyName       string    `json:"familyName,omitempty"`
	FormattedName    string    `json:"formattedName,omitempty"`
	Active           bool      `json:"active"`
	Emails           []Email   `json:"emails,omitempty"`
	Groups           []string  `json:"groups,omitempty"` // group ids this user belongs to
	Department       string    `json:"department,omitempty"`
	RiskScore        int       `json:"riskScore"`
	PasswordVerifier *Verifier `json:"-"`
	Meta             Meta      `json:"meta"`
}

// HasGroup returns true if the user is a member of the given group id.
func (u *User) HasGroup(groupID string) bool {
	for _, g := range u.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}

// Member is a single entry in a Group's ordered member list.
type Member struct {
	Value   string `json:"value"` // user id
	Display string `json:"display,omitempty"`
}

// Group is a named collection of Users.
type Group struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Members     []Member `json:"members,omitempty"`
	Meta        Meta     `json:"meta"`
}

// HasMember returns true if userID appears in the group's member list.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.Value == userID {
			return true
		}
	}
	return false
}

// RemoveMember returns a copy of members with userID removed, preserving order.
func RemoveMember(members []Member, userID string) []Member {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if m.Value != userID {
			out = append(out, m)
		}
	}
	return out
}

// Client is a pre-configured client_credentials principal. Clients are seeded
// from configuration, never created through the SCIM surface.
type Client struct {
	ClientID   string   `json:"client_id"`
	SecretHash string   `json:"-"`
	Scope      []string `json:"scope,omitempty"`
}
