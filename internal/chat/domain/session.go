package domain

import (
	"sort"
	"sync"
	"sync/atomic"
)

// SessionState lifecycle of a connection session
type SessionState int32

const (
	// SessionConnected transport is up, no room joined
	SessionConnected SessionState = iota
	// SessionJoined at least one room joined
	SessionJoined
	// SessionDisconnected terminal, the transport is gone
	SessionDisconnected
)

func (s SessionState) String() string {
	switch s {
	case SessionConnected:
		return "connected"
	case SessionJoined:
		return "joined"
	case SessionDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session one live client connection
//
// Outbound events are queued on a bounded channel drained by the transport
// writer. Deliver never blocks: a full queue drops the event.
type Session struct {
	ID string

	// membership serialises room changes that span the session and the index
	membership sync.Mutex

	mu       sync.Mutex
	memberID string
	rooms    map[string]struct{}
	state    SessionState
	outbound chan []byte

	dropped atomic.Uint64
}

// NewSession create a connected session with an outbound queue of size buffer
func NewSession(id string, buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}
	return &Session{
		ID:       id,
		rooms:    make(map[string]struct{}),
		state:    SessionConnected,
		outbound: make(chan []byte, buffer),
	}
}

// State current lifecycle state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity member bound to the session, if any
func (s *Session) Identity() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memberID, s.memberID != ""
}

// Authenticate bind a verified member to the session
func (s *Session) Authenticate(memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisconnected {
		return ErrSessionClosed
	}
	s.memberID = memberID
	return nil
}

// MarkJoined record roomID, false when it was already joined
func (s *Session) MarkJoined(roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisconnected {
		return false, ErrSessionClosed
	}
	if _, ok := s.rooms[roomID]; ok {
		return false, nil
	}
	s.rooms[roomID] = struct{}{}
	s.state = SessionJoined
	return true, nil
}

// MarkLeft forget roomID, false when it was not joined
func (s *Session) MarkLeft(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return false
	}
	delete(s.rooms, roomID)
	if s.state == SessionJoined && len(s.rooms) == 0 {
		s.state = SessionConnected
	}
	return true
}

// Rooms joined room ids, sorted
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomsLocked()
}

func (s *Session) roomsLocked() []string {
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LockMembership hold while a room change updates both the session and the membership index
func (s *Session) LockMembership() { s.membership.Lock() }

// UnlockMembership release LockMembership
func (s *Session) UnlockMembership() { s.membership.Unlock() }

// Close move to disconnected and close the outbound queue
//
// Returns the rooms the session was in; a second call returns nil.
func (s *Session) Close() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisconnected {
		return nil
	}
	rooms := s.roomsLocked()
	s.rooms = make(map[string]struct{})
	s.state = SessionDisconnected
	close(s.outbound)
	return rooms
}

// Deliver enqueue payload without blocking
func (s *Session) Deliver(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisconnected {
		return false
	}
	select {
	case s.outbound <- payload:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Outbound queue drained by the transport writer, closed on Close
func (s *Session) Outbound() <-chan []byte {
	return s.outbound
}

// Dropped number of events discarded because the queue was full
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}
