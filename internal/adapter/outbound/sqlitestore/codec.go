package sqlitestore

import "github.com/aegisgate/identityd/internal/domain/auth"

// auth.User and auth.Client tag their credential fields json:"-" so the HTTP
// adapter never serializes a password hash or client secret into a response
// body. Persistence needs those fields written to disk, so encoding for
// storage goes through these mirror structs instead of json.Marshal(u)
// directly on the domain type.

type storedUser struct {
	ID               string         `json:"id"`
	UserName         string         `json:"userName"`
	GivenName        string         `json:"givenName,omitempty"`
	FamilyName       string         `json:"familyName,omitempty"`
	FormattedName    string         `json:"formattedName,omitempty"`
	Active           bool           `json:"active"`
	Emails           []auth.Email   `json:"emails,omitempty"`
	Groups           []string       `json:"groups,omitempty"`
	Department       string         `json:"department,omitempty"`
	RiskScore        int            `json:"riskScore"`
	PasswordVerifier *auth.Verifier `json:"passwordVerifier,omitempty"`
	Meta             auth.Meta      `json:"meta"`
}

func toStoredUser(u *auth.User) storedUser {
	return storedUser{
		ID:               u.ID,
		UserName:         u.UserName,
		GivenName:        u.GivenName,
		FamilyName:       u.FamilyName,
		FormattedName:    u.FormattedName,
		Active:           u.Active,
		Emails:           u.Emails,
		Groups:           u.Groups,
		Department:       u.Department,
		RiskScore:        u.RiskScore,
		PasswordVerifier: u.PasswordVerifier,
		Meta:             u.Meta,
	}
}

func (s storedUser) toDomain() *auth.User {
	return &auth.User{
		ID:               s.ID,
		UserName:         s.UserName,
		GivenName:        s.GivenName,
		FamilyName:       s.FamilyName,
		FormattedName:    s.FormattedName,
		Active:           s.Active,
		Emails:           s.Emails,
		Groups:           s.Groups,
		Department:       s.Department,
		RiskScore:        s.RiskScore,
		PasswordVerifier: s.PasswordVerifier,
		Meta:             s.Meta,
	}
}

type storedClient struct {
	ClientID   string   `json:"client_id"`
	SecretHash string   `json:"secretHash"`
	Scope      []string `json:"scope,omitempty"`
}

func toStoredClient(c *auth.Client) storedClient {
	return storedClient{ClientID: c.ClientID, SecretHash: c.SecretHash, Scope: c.Scope}
}

func (s storedClient) toDomain() *auth.Client {
	return &auth.Client{ClientID: s.ClientID, SecretHash: s.SecretHash, Scope: s.Scope}
}
