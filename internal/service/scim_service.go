package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/domain/auth"
)

const (
	userResourceType  = "User"
	groupResourceType = "Group"

	userSchema  = "urn:ietf:params:scim:schemas:core:2.0:User"
	groupSchema = "urn:ietf:params:scim:schemas:core:2.0:Group"
)

var validate = validator.New()

// CreateUserInput is the validated input to CreateUser.
type CreateUserInput struct {
	UserName      string            `json:"userName" validate:"required"`
	GivenName     string            `json:"givenName,omitempty"`
	FamilyName    string            `json:"familyName,omitempty"`
	FormattedName string            `json:"formattedName,omitempty"`
	Active        bool              `json:"active"`
	Emails        []auth.Email      `json:"emails,omitempty" validate:"omitempty,dive"`
	Department    string            `json:"department,omitempty"`
	RiskScore     int               `json:"riskScore" validate:"min=0,max=100"`
	Password      string            `json:"password,omitempty"`
	Groups        []string          `json:"groups,omitempty"`
}

// PatchUserInput is a partial update to a User. Nil fields are left
// unchanged; pointers distinguish "absent" from "zero value".
type PatchUserInput struct {
	Active     *bool    `json:"active,omitempty"`
	Department *string  `json:"dept,omitempty"`
	RiskScore  *int     `json:"riskScore,omitempty" validate:"omitempty,min=0,max=100"`
	Emails     []auth.Email `json:"emails,omitempty" validate:"omitempty,dive"`
	Groups     []string `json:"groups,omitempty"`
}

// CreateGroupInput is the validated input to CreateGroup.
type CreateGroupInput struct {
	DisplayName string        `json:"displayName" validate:"required"`
	Members     []auth.Member `json:"members,omitempty"`
}

// PatchGroupInput replaces or incrementally edits a Group's membership. If
// Members is non-nil it is a full replacement; Add/Remove apply individually
// and are ignored when Members is set.
type PatchGroupInput struct {
	Members []auth.Member `json:"members,omitempty"`
	Add     []auth.Member `json:"add,omitempty"`
	Remove  []string      `json:"remove,omitempty"`
}

// UserList is the SCIM ListResponse wrapper for Users.
type UserList struct {
	TotalResults int         `json:"totalResults"`
	Resources    []auth.User `json:"Resources"`
}

// GroupList is the SCIM ListResponse wrapper for Groups.
type GroupList struct {
	TotalResults int          `json:"totalResults"`
	Resources    []auth.Group `json:"Resources"`
}

// SCIMService implements the minimal SCIM-style provisioning surface for
// Users and Groups described in the external interfaces.
type SCIMService struct {
	users  auth.UserStore
	groups auth.GroupStore
	logger *slog.Logger
}

// NewSCIMService constructs a SCIMService over the given Record Store ports.
func NewSCIMService(users auth.UserStore, groups auth.GroupStore, logger *slog.Logger) *SCIMService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SCIMService{users: users, groups: groups, logger: logger}
}

// CreateUser assigns a usr_-prefixed id, rejects a duplicate userName, and
// persists the new resource.
func (s *SCIMService) CreateUser(ctx context.Context, in CreateUserInput) (*auth.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "invalid user", err)
	}

	now := time.Now().UTC()
	u := &auth.User{
		ID:            "usr_" + uuid.New().String(),
		UserName:      in.UserName,
		GivenName:     in.GivenName,
		FamilyName:    in.FamilyName,
		FormattedName: in.FormattedName,
		Active:        in.Active,
		Emails:        in.Emails,
		Groups:        in.Groups,
		Department:    in.Department,
		RiskScore:     in.RiskScore,
		Meta: auth.Meta{
			ResourceType: userResourceType,
			Created:      now,
			LastModified: now,
			Location:     "/scim/v2/Users/",
		},
	}
	u.Meta.Location += u.ID

	if in.Password != "" {
		hash, err := auth.HashSecret(in.Password)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindEvaluationError, "failed to hash password", err)
		}
		u.PasswordVerifier = &auth.Verifier{Hash: hash}
	}

	if err := s.users.Upsert(ctx, u); err != nil {
		if errors.Is(err, auth.ErrDuplicateUserName) {
			return nil, apperr.Wrap(apperr.KindConflict, "userName already in use", err)
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}

	s.logger.Info("scim user created", "id", u.ID, "userName", u.UserName)
	return u, nil
}

// GetUser fetches a user by id.
func (s *SCIMService) GetUser(ctx context.Context, id string) (*auth.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, mapUserStoreErr(err)
	}
	return u, nil
}

// ListUsers returns all users, or the single match for an exact
// `userName eq "x"` filter.
func (s *SCIMService) ListUsers(ctx context.Context, filter auth.Filter) (*UserList, error) {
	users, err := s.users.List(ctx, filter)
	if err != nil {
		if errors.Is(err, auth.ErrBadFilter) {
			return nil, apperr.Wrap(apperr.KindBadRequest, "unsupported filter", err)
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}
	if users == nil {
		users = []auth.User{}
	}
	return &UserList{TotalResults: len(users), Resources: users}, nil
}

// PatchUser applies a partial update and bumps meta.lastModified.
func (s *SCIMService) PatchUser(ctx context.Context, id string, in PatchUserInput) (*auth.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "invalid patch", err)
	}

	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, mapUserStoreErr(err)
	}

	if in.Active != nil {
		u.Active = *in.Active
	}
	if in.Department != nil {
		u.Department = *in.Department
	}
	if in.RiskScore != nil {
		u.RiskScore = *in.RiskScore
	}
	if in.Emails != nil {
		u.Emails = in.Emails
	}
	if in.Groups != nil {
		u.Groups = in.Groups
	}
	u.Meta.LastModified = time.Now().UTC()

	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}

	s.logger.Info("scim user patched", "id", u.ID)
	return u, nil
}

// DeleteUser removes a user. Groups that still reference it are cleaned up
// lazily the next time they are read or written.
func (s *SCIMService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return mapUserStoreErr(err)
	}
	s.logger.Info("scim user deleted", "id", id)
	return nil
}

// CreateGroup assigns a grp_-prefixed id, rejects a duplicate displayName,
// and validates that every member references an existing user.
func (s *SCIMService) CreateGroup(ctx context.Context, in CreateGroupInput) (*auth.Group, error) {
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "invalid group", err)
	}

	if err := s.assertMembersExist(ctx, in.Members); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	g := &auth.Group{
		ID:          "grp_" + uuid.New().String(),
		DisplayName: in.DisplayName,
		Members:     dedupeMembers(in.Members),
		Meta: auth.Meta{
			ResourceType: groupResourceType,
			Created:      now,
			LastModified: now,
			Location:     "/scim/v2/Groups/",
		},
	}
	g.Meta.Location += g.ID

	if err := s.groups.Upsert(ctx, g); err != nil {
		if errors.Is(err, auth.ErrDuplicateDisplayName) {
			return nil, apperr.Wrap(apperr.KindConflict, "displayName already in use", err)
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}

	s.logger.Info("scim group created", "id", g.ID, "displayName", g.DisplayName)
	return g, nil
}

// GetGroup fetches a group by id, pruning any member that no longer
// references an existing user before returning it.
func (s *SCIMService) GetGroup(ctx context.Context, id string) (*auth.Group, error) {
	g, err := s.groups.Get(ctx, id)
	if err != nil {
		return nil, mapGroupStoreErr(err)
	}
	return s.pruneDangling(ctx, g), nil
}

// ListGroups returns all groups, or the single match for an exact
// `displayName eq "x"` filter. Dangling member references are pruned from
// the view so the list endpoint never surfaces them.
func (s *SCIMService) ListGroups(ctx context.Context, filter auth.Filter) (*GroupList, error) {
	groups, err := s.groups.List(ctx, filter)
	if err != nil {
		if errors.Is(err, auth.ErrBadFilter) {
			return nil, apperr.Wrap(apperr.KindBadRequest, "unsupported filter", err)
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}
	out := make([]auth.Group, 0, len(groups))
	for i := range groups {
		out = append(out, *s.pruneDangling(ctx, &groups[i]))
	}
	return &GroupList{TotalResults: len(out), Resources: out}, nil
}

// PatchGroup applies a full member-list replacement or an incremental
// add/remove, maintaining uniqueness within members by value.
func (s *SCIMService) PatchGroup(ctx context.Context, id string, in PatchGroupInput) (*auth.Group, error) {
	g, err := s.groups.Get(ctx, id)
	if err != nil {
		return nil, mapGroupStoreErr(err)
	}
	g = s.pruneDangling(ctx, g)

	switch {
	case in.Members != nil:
		if err := s.assertMembersExist(ctx, in.Members); err != nil {
			return nil, err
		}
		g.Members = dedupeMembers(in.Members)
	default:
		if err := s.assertMembersExist(ctx, in.Add); err != nil {
			return nil, err
		}
		members := g.Members
		for _, id := range in.Remove {
			members = auth.RemoveMember(members, id)
		}
		members = dedupeMembers(append(members, in.Add...))
		g.Members = members
	}

	g.Meta.LastModified = time.Now().UTC()
	if err := s.groups.Upsert(ctx, g); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}

	s.logger.Info("scim group patched", "id", g.ID)
	return g, nil
}

// DeleteGroup removes a group. It does not delete its member users.
func (s *SCIMService) DeleteGroup(ctx context.Context, id string) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		return mapGroupStoreErr(err)
	}
	s.logger.Info("scim group deleted", "id", id)
	return nil
}

func (s *SCIMService) assertMembersExist(ctx context.Context, members []auth.Member) error {
	for _, m := range members {
		if _, err := s.users.Get(ctx, m.Value); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				return apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("member %q does not reference an existing user", m.Value), auth.ErrUnknownMember)
			}
			return apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
		}
	}
	return nil
}

// pruneDangling returns g with any member removed that no longer references
// an existing user, persisting the cleanup so it does not recur.
func (s *SCIMService) pruneDangling(ctx context.Context, g *auth.Group) *auth.Group {
	kept := make([]auth.Member, 0, len(g.Members))
	dirty := false
	for _, m := range g.Members {
		if _, err := s.users.Get(ctx, m.Value); err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				dirty = true
				continue
			}
			kept = append(kept, m)
			continue
		}
		kept = append(kept, m)
	}
	if !dirty {
		return g
	}
	g.Members = kept
	if err := s.groups.Upsert(ctx, g); err != nil {
		s.logger.Warn("failed to persist dangling member cleanup", "group", g.ID, "error", err)
	}
	return g
}

func dedupeMembers(members []auth.Member) []auth.Member {
	seen := make(map[string]bool, len(members))
	out := make([]auth.Member, 0, len(members))
	for _, m := range members {
		if seen[m.Value] {
			continue
		}
		seen[m.Value] = true
		out = append(out, m)
	}
	return out
}

func mapUserStoreErr(err error) error {
	if errors.Is(err, auth.ErrUserNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "user not found", err)
	}
	return apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
}

func mapGroupStoreErr(err error) error {
	if errors.Is(err, auth.ErrGroupNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "group not found", err)
	}
	return apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
}

// ParseFilter parses the single supported SCIM list filter grammar
// `attr eq "literal"`. An empty string means no filter.
func ParseFilter(raw string) (auth.Filter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return auth.Filter{}, nil
	}
	parts := strings.SplitN(raw, " eq ", 2)
	if len(parts) != 2 {
		return auth.Filter{}, auth.ErrBadFilter
	}
	attr := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	value = strings.Trim(value, `"`)
	if attr == "" || value == "" {
		return auth.Filter{}, auth.ErrBadFilter
	}
	return auth.Filter{Attr: attr, Value: value}, nil
}
