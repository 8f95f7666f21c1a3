package app

import (
	"context"

	chatapp "chat_relay_service/internal/chat/app"
	chatdomain "chat_relay_service/internal/chat/domain"
)

// ChatAuthGate lets the chat relay resolve credentials against member sessions
type ChatAuthGate struct {
	members MemberUseCase
}

// NewChatAuthGate create ChatAuthGate
func NewChatAuthGate(members MemberUseCase) *ChatAuthGate {
	return &ChatAuthGate{members: members}
}

// Verify implements chatapp.AuthGate
func (g *ChatAuthGate) Verify(ctx context.Context, credentials string) (chatapp.Identity, error) {
	claims, err := g.members.Verify(ctx, credentials)
	if err != nil {
		return chatapp.Identity{}, err
	}
	return chatapp.Identity{MemberID: claims.MemberID, Role: claims.Role}, nil
}

// Refresh implements chatapp.SessionKeeper, a websocket (re)connect extends the login session
func (g *ChatAuthGate) Refresh(ctx context.Context, credentials string) error {
	return g.members.ReconnectSession(ctx, credentials)
}

// ChatProfileDirectory lets the chat relay enrich messages with member profiles
type ChatProfileDirectory struct {
	profiles *ProfileService
}

// NewChatProfileDirectory create ChatProfileDirectory
func NewChatProfileDirectory(profiles *ProfileService) *ChatProfileDirectory {
	return &ChatProfileDirectory{profiles: profiles}
}

// Profiles implements chatapp.ProfileDirectory
func (d *ChatProfileDirectory) Profiles(ctx context.Context, memberIDs []string) (map[string]chatdomain.SenderProfile, error) {
	found, err := d.profiles.Profiles(ctx, memberIDs)
	out := make(map[string]chatdomain.SenderProfile, len(found))
	for id, p := range found {
		out[id] = chatdomain.SenderProfile{ID: id, Username: p.Username, Avatar: p.Avatar}
	}
	return out, err
}

var (
	_ chatapp.AuthGate         = (*ChatAuthGate)(nil)
	_ chatapp.SessionKeeper    = (*ChatAuthGate)(nil)
	_ chatapp.ProfileDirectory = (*ChatProfileDirectory)(nil)
)
