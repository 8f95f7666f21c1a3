package app

import (
	"context"

	"chat_relay_service/internal/chat/domain"
)

// Identity member resolved from credentials
type Identity struct {
	MemberID string
	Role     string
}

// AuthGate resolve opaque credentials to a member
//
// Any failure maps to domain.ErrUnauthorized.
type AuthGate interface {
	Verify(ctx context.Context, credentials string) (Identity, error)
}

// SessionKeeper optional AuthGate extension: extend the login session behind
// credentials when a websocket connects or authenticates
type SessionKeeper interface {
	Refresh(ctx context.Context, credentials string) error
}

// ProfileDirectory display attributes of members, keyed by member id
//
// Unknown ids are simply absent from the result.
type ProfileDirectory interface {
	Profiles(ctx context.Context, memberIDs []string) (map[string]domain.SenderProfile, error)
}
