// internal/app/system/auth/tokens.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultAccessTTL is the lifetime of an access credential.
const DefaultAccessTTL = 15 * time.Minute

const issuer = "groupshare"

// Scope is who a request acts as: one user in exactly one group.
type Scope struct {
	UserID  primitive.ObjectID
	GroupID primitive.ObjectID
	Role    authz.Role
}

// Claims is the payload of an access credential. The stored membership role
// and the owner flag travel separately; Scope folds them into authz.Role.
type Claims struct {
	GroupID string `json:"gid"`
	Role    string `json:"role"`
	Owner   bool   `json:"own,omitempty"`
	jwt.RegisteredClaims
}

// Tokens mints and parses HS256 access credentials.
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokens creates a Tokens. A non-positive ttl uses DefaultAccessTTL.
func NewTokens(key []byte, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &Tokens{key: key, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source. Tests use it to age credentials.
func (t *Tokens) SetClock(now func() time.Time) {
	t.now = now
}

// TTL returns the access credential lifetime.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Mint issues an access credential for s. It returns the signed token and
// its expiry.
func (t *Tokens) Mint(s Scope) (string, time.Time, error) {
	if s.UserID.IsZero() || s.GroupID.IsZero() {
		return "", time.Time{}, errors.New("access credential needs a user and a group")
	}
	role := s.Role.MembershipRole()
	if role == "" {
		return "", time.Time{}, fmt.Errorf("cannot mint access for role %v", s.Role)
	}

	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		GroupID: s.GroupID.Hex(),
		Role:    role,
		Owner:   s.Role.IsOwner(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   s.UserID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access credential: %w", err)
	}
	return signed, exp, nil
}

// Parse validates raw and returns its Scope. Every failure (malformed,
// expired, wrong signature or algorithm, bad claims) is ErrUnauthenticated.
func (t *Tokens) Parse(raw string) (Scope, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Scope{}, fmt.Errorf("parse access credential: %v: %w", err, apperr.ErrUnauthenticated)
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return Scope{}, fmt.Errorf("bad subject: %w", apperr.ErrUnauthenticated)
	}
	groupID, err := primitive.ObjectIDFromHex(claims.GroupID)
	if err != nil {
		return Scope{}, fmt.Errorf("bad group: %w", apperr.ErrUnauthenticated)
	}
	role, err := authz.Derive(claims.Role, claims.Owner)
	if err != nil {
		return Scope{}, fmt.Errorf("bad role: %v: %w", err, apperr.ErrUnauthenticated)
	}
	return Scope{UserID: userID, GroupID: groupID, Role: role}, nil
}
