package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind identifies an invite token family.
type TokenKind string

const (
	// TokenKindEventUpload is a shareable link that lets its holder publish events.
	TokenKindEventUpload TokenKind = "event_upload"
	// TokenKindTeamJoin is a shareable link that lets its holder join a department roster.
	TokenKindTeamJoin TokenKind = "team_join"
)

// InviteToken is a scoped, time-boxed capability grant handed out as a link.
// Invite tokens are multi-use: any holder may present one any number of times
// until it expires or is revoked.
type InviteToken struct {
	ID        uuid.UUID `json:"id"`
	Kind      TokenKind `json:"kind"`
	Token     string    `json:"token"`
	Scope     string    `json:"scope,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
