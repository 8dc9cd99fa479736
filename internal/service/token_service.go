// Package service wires the domain packages (policy, auth, audit) into the
// application-level operations the HTTP adapter calls.
package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aegisgate/identityd/internal/config"
	"github.com/aegisgate/identityd/internal/domain/apperr"
	"github.com/aegisgate/identityd/internal/domain/auth"
)

// Claims is the bearer token payload: the registered claims plus the
// attribute set the Rule Engine evaluates requests against.
type Claims struct {
	jwt.RegisteredClaims
	Scope     string   `json:"scope,omitempty"`
	Groups    []string `json:"groups,omitempty"`
	Dept      string   `json:"dept,omitempty"`
	RiskScore int      `json:"riskScore"`
}

// TokenResult is the response body for a successful /auth/token call.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenService issues and validates bearer tokens.
type TokenService struct {
	users   auth.UserStore
	clients auth.ClientStore

	alg        string
	hmacKey    []byte
	rsaPrivate *rsa.PrivateKey
	rsaPublic  *rsa.PublicKey
	signMethod jwt.SigningMethod

	ttl time.Duration
}

// NewTokenService builds a TokenService from JWT configuration, parsing the
// RS256 key pair up front so a malformed key fails at startup rather than on
// the first request.
func NewTokenService(cfg config.JWTConfig, users auth.UserStore, clients auth.ClientStore) (*TokenService, error) {
	s := &TokenService{
		users:   users,
		clients: clients,
		alg:     cfg.Alg,
		ttl:     time.Duration(cfg.ExpireMinutes) * time.Minute,
	}

	switch cfg.Alg {
	case "HS256":
		s.hmacKey = []byte(cfg.Secret)
		s.signMethod = jwt.SigningMethodHS256
	case "RS256":
		priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("token service: parse JWT_PRIVATE_KEY: %w", err)
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("token service: parse JWT_PUBLIC_KEY: %w", err)
		}
		s.rsaPrivate = priv
		s.rsaPublic = pub
		s.signMethod = jwt.SigningMethodRS256
	default:
		return nil, fmt.Errorf("token service: unsupported JWT_ALG %q", cfg.Alg)
	}

	return s, nil
}

// IssuePassword verifies a username/password pair and issues a token
// carrying the user's attribute set. An inactive user is reported identically
// to a wrong password, so the token endpoint never reveals account state to
// an unauthenticated caller.
func (s *TokenService) IssuePassword(ctx context.Context, username, password string) (*TokenResult, error) {
	u, err := s.users.FindByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, apperr.New(apperr.KindBadCredentials, "invalid username or password")
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}
	if !u.Active {
		return nil, apperr.New(apperr.KindBadCredentials, "invalid username or password")
	}
	if u.PasswordVerifier == nil {
		return nil, apperr.New(apperr.KindBadCredentials, "invalid username or password")
	}
	ok, err := auth.VerifySecret(password, u.PasswordVerifier.Hash)
	if err != nil || !ok {
		return nil, apperr.New(apperr.KindBadCredentials, "invalid username or password")
	}

	return s.sign(u.ID, "", u.Groups, u.Department, u.RiskScore)
}

// IssueClientCredentials verifies a client_id/client_secret pair and issues a
// token scoped to the requested (subset of allowed) scope.
func (s *TokenService) IssueClientCredentials(ctx context.Context, clientID, clientSecret string, requestedScope []string) (*TokenResult, error) {
	c, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, auth.ErrClientNotFound) {
			return nil, apperr.New(apperr.KindBadCredentials, "invalid client credentials")
		}
		return nil, apperr.Wrap(apperr.KindUnavailable, "record store unavailable", err)
	}
	ok, err := auth.VerifySecret(clientSecret, c.SecretHash)
	if err != nil || !ok {
		return nil, apperr.New(apperr.KindBadCredentials, "invalid client credentials")
	}

	scope := c.Scope
	if len(requestedScope) > 0 {
		scope = intersectScope(c.Scope, requestedScope)
	}

	return s.sign(c.ClientID, strings.Join(scope, " "), nil, "", 0)
}

func intersectScope(allowed, requested []string) []string {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}
	var out []string
	for _, r := range requested {
		if allowedSet[r] {
			out = append(out, r)
		}
	}
	return out
}

func (s *TokenService) sign(sub, scope string, groups []string, dept string, riskScore int) (*TokenResult, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Scope:     scope,
		Groups:    groups,
		Dept:      dept,
		RiskScore: riskScore,
	}

	token := jwt.NewWithClaims(s.signMethod, claims)
	signed, err := token.SignedString(s.signingKey())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEvaluationError, "failed to sign token", err)
	}

	return &TokenResult{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

func (s *TokenService) signingKey() any {
	if s.alg == "RS256" {
		return s.rsaPrivate
	}
	return s.hmacKey
}

var errAlgMismatch = errors.New("signing method mismatch")

// Validate parses and verifies a bearer token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.signMethod.Alg() {
			return nil, errAlgMismatch
		}
		if s.alg == "RS256" {
			return s.rsaPublic, nil
		}
		return s.hmacKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, errAlgMismatch):
			return nil, apperr.Wrap(apperr.KindTokenAlgorithmMismatch, "token algorithm mismatch", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperr.Wrap(apperr.KindTokenExpired, "token expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, apperr.Wrap(apperr.KindTokenSignatureInvalid, "token signature invalid", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, apperr.Wrap(apperr.KindTokenMalformed, "token malformed", err)
		default:
			return nil, apperr.Wrap(apperr.KindTokenMalformed, "token invalid", err)
		}
	}

	return claims, nil
}
