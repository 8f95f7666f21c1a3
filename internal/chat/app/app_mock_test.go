package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chat_relay_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockRoomRepo Mock RoomRepository
type MockRoomRepo struct {
	mock.Mock
}

func (m *MockRoomRepo) CreateRoom(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepo) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRoomRepo) UpdateRoom(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepo) SetLatestMessage(ctx context.Context, roomID, messageID string) error {
	args := m.Called(ctx, roomID, messageID)
	return args.Error(0)
}

func (m *MockRoomRepo) AddMember(ctx context.Context, roomID, memberID string) error {
	args := m.Called(ctx, roomID, memberID)
	return args.Error(0)
}

func (m *MockRoomRepo) RemoveMember(ctx context.Context, roomID, memberID string) error {
	args := m.Called(ctx, roomID, memberID)
	return args.Error(0)
}

// MockMessageRepo Mock MessageRepository
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, roomID, messageID, memberID string) error {
	args := m.Called(ctx, roomID, messageID, memberID)
	return args.Error(0)
}

// MockBroadcaster records every broadcast
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(roomID string, event domain.WSResponse) int {
	args := m.Called(roomID, event)
	return args.Int(0)
}

// MockPublisher Mock MessageEventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMessageCreated(ctx context.Context, msg domain.MessageView) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// fakeAuth accepts credentials of the form "token-<member>"
type fakeAuth struct{}

func (fakeAuth) Verify(_ context.Context, credentials string) (Identity, error) {
	id, ok := strings.CutPrefix(credentials, "token-")
	if !ok || id == "" {
		return Identity{}, errors.New("bad token")
	}
	return Identity{MemberID: id, Role: "member"}, nil
}

// fakeProfiles knows every member as "<id>-name", err makes lookups fail
type fakeProfiles struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeProfiles) Profiles(_ context.Context, ids []string) (map[string]domain.SenderProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.SenderProfile, len(ids))
	for _, id := range ids {
		out[id] = domain.SenderProfile{ID: id, Username: id + "-name"}
	}
	return out, nil
}
