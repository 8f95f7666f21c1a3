package app

import (
	"context"
	"time"

	"chat_relay_service/internal/member/domain"

	"github.com/stretchr/testify/mock"
)

// MockMemberRepo Mock MemberRepo
type MockMemberRepo struct {
	mock.Mock
}

func (m *MockMemberRepo) CreateUser(ctx context.Context, user *domain.Member) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockMemberRepo) UpdateMemberStatus(ctx context.Context, user *domain.Member) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockMemberRepo) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	args := m.Called(ctx, memberQuery)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMemberRepo) FindByMemberIDs(ctx context.Context, memberIDs []string) ([]domain.Member, error) {
	args := m.Called(ctx, memberIDs)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRedisRepo 針對 MemberSession 的 Mock
type MockRedisRepo struct {
	mock.Mock
}

// Set 模擬 Redis Set 操作
func (m *MockRedisRepo) Set(ctx context.Context, key string, value domain.MemberSession, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get 模擬 Redis Get 操作
func (m *MockRedisRepo) Get(ctx context.Context, key string) (domain.MemberSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).(domain.MemberSession), args.Error(1)
	}
	return domain.MemberSession{}, args.Error(1)
}

// Del 模擬 Redis Del 操作
func (m *MockRedisRepo) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// ExtendTTL 模擬 Redis ExtendTTL 操作
func (m *MockRedisRepo) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// GetTTL 模擬 Redis GetTTL 操作
func (m *MockRedisRepo) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}
