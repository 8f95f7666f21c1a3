package app

import (
	"sync"

	"chat_relay_service/internal/chat/domain"
)

// MembershipIndex room id -> live sessions joined to it
//
// The outer lock only guards the room map; membership changes take the
// room's own lock, so rooms never contend with each other. An empty room
// entry is detached under its own lock and marked removed, a Join that raced
// with the removal retries on a fresh entry.
type MembershipIndex struct {
	mu    sync.Mutex
	rooms map[string]*roomMembers
}

type roomMembers struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	removed  bool
}

// NewMembershipIndex create an empty index
func NewMembershipIndex() *MembershipIndex {
	return &MembershipIndex{rooms: make(map[string]*roomMembers)}
}

func (m *MembershipIndex) room(roomID string, create bool) *roomMembers {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok && create {
		r = &roomMembers{sessions: make(map[string]*domain.Session)}
		m.rooms[roomID] = r
	}
	return r
}

// Join add s under roomID, false when it was already there
func (m *MembershipIndex) Join(roomID string, s *domain.Session) bool {
	for {
		r := m.room(roomID, true)
		r.mu.Lock()
		if r.removed {
			r.mu.Unlock()
			continue
		}
		_, existed := r.sessions[s.ID]
		r.sessions[s.ID] = s
		r.mu.Unlock()
		return !existed
	}
}

// Leave remove sessionID from roomID, false when it was not there
func (m *MembershipIndex) Leave(roomID, sessionID string) bool {
	r := m.room(roomID, false)
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)

	if len(r.sessions) == 0 && !r.removed {
		r.removed = true
		m.mu.Lock()
		if m.rooms[roomID] == r {
			delete(m.rooms, roomID)
		}
		m.mu.Unlock()
	}
	return true
}

// Members snapshot of the sessions joined to roomID
func (m *MembershipIndex) Members(roomID string) []*domain.Session {
	r := m.room(roomID, false)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Contains report whether sessionID is joined to roomID
func (m *MembershipIndex) Contains(roomID, sessionID string) bool {
	r := m.room(roomID, false)
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// Count number of sessions joined to roomID
func (m *MembershipIndex) Count(roomID string) int {
	r := m.room(roomID, false)
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Rooms number of rooms with at least one session
func (m *MembershipIndex) Rooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
