// Package bootstrap seeds startup-only data that has no SCIM or policy-file
// surface of its own: client_credentials principals (read from an optional
// JSON side-file) and, in development mode, a throwaway admin identity so a
// fresh checkout has something to issue a token for.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aegisgate/identityd/internal/domain/auth"
	"github.com/aegisgate/identityd/internal/service"
)

// clientSeed is the on-disk shape of one entry in the clients seed file.
type clientSeed struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scope        []string `json:"scope,omitempty"`
}

// SeedClients reads a JSON array of client_credentials principals from path
// and upserts them into store, hashing each cleartext secret with the same
// Argon2id parameters SCIM password verifiers use. A missing file is not an
// error: client_credentials is optional, and deployments that only use the
// password grant need not configure one.
func SeedClients(ctx context.Context, store auth.ClientStore, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("bootstrap: read clients file %s: %w", path, err)
	}

	var seeds []clientSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("bootstrap: parse clients file %s: %w", path, err)
	}

	for _, s := range seeds {
		hash, err := auth.HashSecret(s.ClientSecret)
		if err != nil {
			return fmt.Errorf("bootstrap: hash secret for client %s: %w", s.ClientID, err)
		}
		if err := store.Upsert(ctx, &auth.Client{ClientID: s.ClientID, SecretHash: hash, Scope: s.Scope}); err != nil {
			return fmt.Errorf("bootstrap: seed client %s: %w", s.ClientID, err)
		}
		logger.Info("seeded client_credentials principal", "client_id", s.ClientID)
	}
	return nil
}

// DevAdminUsername and DevAdminPassword are the credentials of the
// development-mode admin identity created by SeedDev.
const (
	DevAdminUsername = "admin"
	DevAdminPassword = "dev-mode-admin-password"

	// adminsGroupID is fixed (rather than generated) so dev policies can
	// reference it by name; it is never exposed through the SCIM surface as
	// anything other than an ordinary group id.
	adminsGroupID = "ADMINS"
)

// SeedDev creates a single active admin user, in the ADMINS group, so a
// fresh DEV_MODE=true checkout has a credential to exercise /auth/token and
// the admin-gated /authz/policies/reload endpoint with. It is a no-op if the
// admin user already exists (e.g. a restart against a persistent DB_PATH).
func SeedDev(ctx context.Context, scim *service.SCIMService, groups auth.GroupStore, logger *slog.Logger) error {
	existing, err := scim.ListUsers(ctx, auth.Filter{Attr: "userName", Value: DevAdminUsername})
	if err != nil {
		return fmt.Errorf("bootstrap: check for existing dev admin: %w", err)
	}
	if existing.TotalResults > 0 {
		return nil
	}

	u, err := scim.CreateUser(ctx, service.CreateUserInput{
		UserName:   DevAdminUsername,
		GivenName:  "Dev",
		FamilyName: "Admin",
		Active:     true,
		Department: "IT",
		RiskScore:  0,
		Password:   DevAdminPassword,
		Groups:     []string{adminsGroupID},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: create dev admin: %w", err)
	}

	now := time.Now().UTC()
	group := &auth.Group{
		ID:          adminsGroupID,
		DisplayName: adminsGroupID,
		Members:     []auth.Member{{Value: u.ID, Display: u.UserName}},
		Meta: auth.Meta{
			ResourceType: "Group",
			Created:      now,
			LastModified: now,
			Location:     "/scim/v2/Groups/" + adminsGroupID,
		},
	}
	if err := groups.Upsert(ctx, group); err != nil {
		return fmt.Errorf("bootstrap: create dev admin group: %w", err)
	}

	logger.Warn("seeded development admin identity; do not use in production",
		"username", DevAdminUsername, "user_id", u.ID)
	return nil
}
