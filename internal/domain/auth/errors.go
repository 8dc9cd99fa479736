package auth

import "errors"

// Sentinel errors shared by the SCIM and Token services.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrDuplicateUserName    = errors.New("userName already in use")
	ErrDuplicateDisplayName = errors.New("displayName already in use")
	ErrUnknownMember        = errors.New("member does not reference an existing user")
	ErrBadCredentials       = errors.New("bad credentials")
	ErrBadFilter            = errors.New("unsupported filter expression")
)
