package app

import (
	"strings"
	"sync"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectionManager owns every live session and keeps the membership index
// in step with them
type ConnectionManager struct {
	index  *MembershipIndex
	buffer int

	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewConnectionManager create a manager whose sessions queue up to buffer events
func NewConnectionManager(index *MembershipIndex, buffer int) *ConnectionManager {
	return &ConnectionManager{
		index:    index,
		buffer:   buffer,
		sessions: make(map[string]*domain.Session),
	}
}

// Connect allocate a session with no identity and no rooms
func (m *ConnectionManager) Connect() *domain.Session {
	s := domain.NewSession(uuid.NewString(), m.buffer)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.WsConnections.Inc()
	logger.Log.Debug("session connected", zap.String("session_id", s.ID))
	return s
}

// normalizeRoomID room ids are compared after trimming surrounding blanks
func normalizeRoomID(roomID string) string {
	return strings.TrimSpace(roomID)
}

// Join add s to roomID, joining twice is a no-op
//
// The room does not have to exist in the store.
func (m *ConnectionManager) Join(s *domain.Session, roomID string) error {
	roomID = normalizeRoomID(roomID)
	if roomID == "" {
		return validationErr("room_id is required")
	}

	s.LockMembership()
	defer s.UnlockMembership()
	if _, err := s.MarkJoined(roomID); err != nil {
		return err
	}
	m.index.Join(roomID, s)
	logger.Log.Debug("session joined", zap.String("session_id", s.ID), zap.String("room_id", roomID))
	return nil
}

// Leave remove s from roomID only
func (m *ConnectionManager) Leave(s *domain.Session, roomID string) {
	roomID = normalizeRoomID(roomID)

	s.LockMembership()
	defer s.UnlockMembership()
	s.MarkLeft(roomID)
	m.index.Leave(roomID, s.ID)
}

// Disconnect remove s from every room and forget it, safe to call twice
func (m *ConnectionManager) Disconnect(s *domain.Session) {
	s.LockMembership()
	rooms := s.Close()
	for _, roomID := range rooms {
		m.index.Leave(roomID, s.ID)
	}
	s.UnlockMembership()

	m.mu.Lock()
	_, tracked := m.sessions[s.ID]
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	if tracked {
		metrics.WsConnections.Dec()
		logger.Log.Debug("session disconnected", zap.String("session_id", s.ID), zap.Strings("rooms", rooms))
	}
}

// Len number of live sessions
func (m *ConnectionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Online number of sessions joined to roomID
func (m *ConnectionManager) Online(roomID string) int {
	return m.index.Count(normalizeRoomID(roomID))
}

// Shutdown disconnect every live session
func (m *ConnectionManager) Shutdown() {
	m.mu.Lock()
	all := make([]*domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.Disconnect(s)
	}
	logger.Log.Info("connection manager stopped", zap.Int("sessions", len(all)))
}
