package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg"
)

// MemoryStore process local room+message store for local runs and tests
type MemoryStore struct {
	mu       sync.RWMutex
	clock    *Clock
	rooms    map[string]domain.Room
	messages map[string][]domain.Message
}

// NewMemoryStore create an empty MemoryStore
func NewMemoryStore(clock *Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clock,
		rooms:    make(map[string]domain.Room),
		messages: make(map[string][]domain.Message),
	}
}

func copyRoom(r domain.Room) *domain.Room {
	r.Members = append([]string{}, r.Members...)
	return &r
}

func copyMessage(m domain.Message) domain.Message {
	m.ReadBy = append([]string{}, m.ReadBy...)
	return m
}

// CreateRoom insert a room
func (s *MemoryStore) CreateRoom(_ context.Context, room *domain.Room) error {
	prepareRoom(room)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *copyRoom(*room)
	return nil
}

// FindByID load a room
func (s *MemoryStore) FindByID(_ context.Context, roomID string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return copyRoom(r), nil
}

// UpdateRoom overwrite name and admin
func (s *MemoryStore) UpdateRoom(_ context.Context, room *domain.Room) error {
	return s.mutateRoom(room.ID, func(r *domain.Room) {
		r.Name = room.Name
		r.Admin = room.Admin
	})
}

// SetLatestMessage point the room at messageID
func (s *MemoryStore) SetLatestMessage(_ context.Context, roomID, messageID string) error {
	return s.mutateRoom(roomID, func(r *domain.Room) { r.LatestMessage = messageID })
}

// AddMember add memberID to the member set
func (s *MemoryStore) AddMember(_ context.Context, roomID, memberID string) error {
	return s.mutateRoom(roomID, func(r *domain.Room) { r.Members = pkg.AppendUnique(r.Members, memberID) })
}

// RemoveMember drop memberID from the member set
func (s *MemoryStore) RemoveMember(_ context.Context, roomID, memberID string) error {
	return s.mutateRoom(roomID, func(r *domain.Room) { r.Members = pkg.Remove(r.Members, memberID) })
}

func (s *MemoryStore) mutateRoom(roomID string, fn func(*domain.Room)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	r := copyRoom(stored)
	fn(r)
	r.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	s.rooms[roomID] = *r
	return nil
}

// CreateMessage append a message to its room
func (s *MemoryStore) CreateMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prepareMessage(msg, s.clock)
	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], copyMessage(*msg))
	return nil
}

// ListByRoom messages of a room, oldest first
func (s *MemoryStore) ListByRoom(_ context.Context, roomID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.messages[roomID]
	out := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, copyMessage(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarkRead add memberID to read_by
func (s *MemoryStore) MarkRead(_ context.Context, roomID, messageID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[roomID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].ReadBy = pkg.AppendUnique(msgs[i].ReadBy, memberID)
			msgs[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrMessageNotFound
}
