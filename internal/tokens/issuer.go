// Package tokens issues and validates the ephemeral credentials behind the
// chapter's shareable links: event upload links and team join links. Tokens
// are unguessable, carry a hard expiry, and are multi-use until expiry or
// revocation.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nexus-chapter/backend/internal/models"
)

var (
	// ErrNotFound means no record matches the presented token.
	ErrNotFound = errors.New("token not found")
	// ErrExpired means the token exists but its validity window has passed.
	ErrExpired = errors.New("token expired")
)

const (
	// LinkTTL is the validity window for upload and join links.
	LinkTTL = 12 * time.Hour

	tokenBytes = 32
)

// Store persists invite tokens. GetByToken returns (nil, nil) when no record
// matches, so callers can distinguish absence from storage failure.
type Store interface {
	Insert(ctx context.Context, t *models.InviteToken) error
	GetByToken(ctx context.Context, kind models.TokenKind, token string) (*models.InviteToken, error)
	Delete(ctx context.Context, kind models.TokenKind, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Issuer mints, validates and revokes invite tokens.
type Issuer struct {
	store Store
	now   func() time.Time
}

// NewIssuer creates a token issuer backed by store.
func NewIssuer(store Store) *Issuer {
	return &Issuer{store: store, now: time.Now}
}

// Mint generates an unguessable token of the given kind, persists it with a
// now+ttl expiry, and returns the stored record.
func (i *Issuer) Mint(ctx context.Context, kind models.TokenKind, scope string, ttl time.Duration) (*models.InviteToken, error) {
	tokenStr, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	t := &models.InviteToken{
		Kind:      kind,
		Token:     tokenStr,
		Scope:     scope,
		ExpiresAt: i.now().Add(ttl),
	}
	if err := i.store.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	return t, nil
}

// Validate checks a presented token. It is read-only and idempotent: a valid
// multi-use link may be presented any number of times within its window.
func (i *Issuer) Validate(ctx context.Context, kind models.TokenKind, token string) (*models.InviteToken, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	t, err := i.store.GetByToken(ctx, kind, token)
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	if i.now().After(t.ExpiresAt) {
		return nil, ErrExpired
	}
	return t, nil
}

// Revoke deletes the token outright. Revocation is irreversible; a new token
// must be minted to restore access. Returns false when no record existed
// (already revoked or never issued).
func (i *Issuer) Revoke(ctx context.Context, kind models.TokenKind, token string) (bool, error) {
	deleted, err := i.store.Delete(ctx, kind, token)
	if err != nil {
		return false, fmt.Errorf("delete token: %w", err)
	}
	return deleted, nil
}

// PurgeExpired removes tokens whose expiry has passed. Validation already
// rejects expired tokens; this only reclaims storage.
func (i *Issuer) PurgeExpired(ctx context.Context) (int64, error) {
	return i.store.DeleteExpired(ctx, i.now())
}

// GenerateToken returns a hex-encoded 32-byte random token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
