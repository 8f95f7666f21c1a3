package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_relay_service/internal/member/domain"
	"chat_relay_service/internal/member/repository"
	"chat_relay_service/pkg/database"
	"chat_relay_service/pkg/encrypt"
	"chat_relay_service/pkg/logger"
	token "chat_relay_service/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPassword = "!!Securepassword111"

func TestMemberUseCase_Register(t *testing.T) {
	ctx := context.Background()
	email := "test@example.com"
	req := domain.RegisterRequest{Email: email, Password: testPassword, Username: "tester"}

	logger.SetNewNop()

	// **情境 1: 註冊成功**
	t.Run("成功註冊", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, domain.ErrMemberNotFound).Once()
		mockRepo.On("CreateUser", ctx, mock.MatchedBy(func(m *domain.Member) bool {
			return m.Email == email && m.Username == "tester" && m.MemberID != "" && m.Password != testPassword
		})).Return(nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword)
		member, err := uc.Register(ctx, req)

		require.NoError(t, err)
		assert.Empty(t, member.Password)
		mockRepo.AssertExpectations(t)
	})

	// **情境 2: Email 已存在**
	t.Run("Email 已存在", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).
			Return(&domain.Member{ID: 1, MemberID: "AAA", Email: email}, nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword)
		_, err := uc.Register(ctx, req)

		assert.ErrorIs(t, err, domain.ErrEmailExists)
		mockRepo.AssertExpectations(t)
	})

	// **情境 3: 密碼加密失敗**
	t.Run("密碼加密失敗", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, domain.ErrMemberNotFound).Once()

		mockHashPassword := func(string) (string, error) {
			return "", errors.New("hash password error")
		}
		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), mockHashPassword)
		_, err := uc.Register(ctx, req)

		assert.EqualError(t, err, "hash password error")
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	// **情境 4: 密碼強度不足**
	t.Run("密碼強度不足", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, domain.ErrMemberNotFound).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword)
		_, err := uc.Register(ctx, domain.RegisterRequest{Email: email, Password: "pw123"})

		assert.ErrorIs(t, err, encrypt.ErrWeakPassword)
	})

	// **情境 5: 建立用戶失敗**
	t.Run("建立用戶失敗", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, domain.ErrMemberNotFound).Once()
		mockRepo.On("CreateUser", ctx, mock.Anything).Return(errors.New("db error")).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword)
		_, err := uc.Register(ctx, req)

		assert.EqualError(t, err, "db error")
		mockRepo.AssertExpectations(t)
	})
}

func TestMemberUseCase_Login(t *testing.T) {
	ctx := context.Background()
	email := "test@example.com"
	hashedPassword, err := encrypt.HashPassword(testPassword)
	require.NoError(t, err)

	logger.SetNewNop() // 禁用測試時的 log 輸出

	newMember := func() *domain.Member {
		return &domain.Member{MemberID: "AAA", Email: email, Password: hashedPassword, Status: domain.MemberStatusOffLine}
	}

	// **情境 1: 成功登入**
	t.Run("成功登入", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRedis := new(MockRedisRepo)
		now := time.Now()

		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(newMember(), nil).Once()
		mockRepo.On("UpdateMemberStatus", ctx, mock.MatchedBy(func(m *domain.Member) bool {
			return m.Status == domain.MemberStatusOnLine
		})).Return(nil).Once()
		mockRedis.On("Set", ctx, "AAA", mock.MatchedBy(func(s domain.MemberSession) bool {
			return s.MemberID == "AAA" && s.ExpiredAt.Equal(now.Add(time.Hour))
		}), time.Hour).Return(nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, mockRedis, encrypt.HashPassword)
		tok, err := uc.Login(ctx, email, testPassword, now)

		require.NoError(t, err)
		claims, err := token.ParseJWT(tok)
		require.NoError(t, err)
		assert.Equal(t, "AAA", claims.MemberID)
		mockRepo.AssertExpectations(t)
		mockRedis.AssertExpectations(t)
	})

	// **情境 2: 使用者不存在**
	t.Run("使用者不存在", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(nil, domain.ErrMemberNotFound).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword)
		tok, err := uc.Login(ctx, email, testPassword, time.Now())

		assert.ErrorIs(t, err, domain.ErrMemberNotFound)
		assert.Empty(t, tok)
	})

	// **情境 3: 密碼錯誤**
	t.Run("密碼錯誤", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRedis := new(MockRedisRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(newMember(), nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, mockRedis, encrypt.HashPassword)
		tok, err := uc.Login(ctx, email, "wrong_password", time.Now())

		assert.ErrorIs(t, err, encrypt.ErrPasswordMismatch)
		assert.Empty(t, tok)
		mockRedis.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 4: 帳號被封鎖**
	t.Run("帳號被封鎖", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		banned := newMember()
		banned.Status = domain.MemberStatusBan
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(banned, nil).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, new(MockRedisRepo), encrypt.HashPassword)
		_, err := uc.Login(ctx, email, testPassword, time.Now())

		assert.ErrorIs(t, err, domain.ErrMemberDisabled)
	})

	// **情境 5: JWT 生成失敗**
	t.Run("JWT 生成失敗", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRedis := new(MockRedisRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(newMember(), nil).Once()

		// **先備份原始的 `GenerateJWTFunc`**
		originalGenerateJWT := token.GenerateJWTFunc
		defer func() { token.GenerateJWTFunc = originalGenerateJWT }() // **確保測試結束後恢復**
		token.GenerateJWTFunc = func(string, string, string) (string, error) {
			return "", errors.New("can't GenerateJWT")
		}

		uc := NewMemberUseCase(mockRepo, time.Hour, mockRedis, encrypt.HashPassword)
		tok, err := uc.Login(ctx, email, testPassword, time.Now())

		assert.EqualError(t, err, "can't GenerateJWT")
		assert.Empty(t, tok)
		mockRedis.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 6: Redis 存 session 失敗**
	t.Run("Redis 存 session 失敗", func(t *testing.T) {
		mockRepo := new(MockMemberRepo)
		mockRedis := new(MockRedisRepo)
		mockRepo.On("FindByMember", ctx, &domain.MemberQuery{Email: &email}).Return(newMember(), nil).Once()

		originalGenerateJWT := token.GenerateJWTFunc
		defer func() { token.GenerateJWTFunc = originalGenerateJWT }()
		token.GenerateJWTFunc = func(string, string, string) (string, error) {
			return "token", nil
		}

		now := time.Now()
		session := domain.MemberSession{
			Token:        "token",
			MemberID:     "AAA",
			CreatedAt:    now,
			LastActivity: now,
			ExpiredAt:    now.Add(time.Hour),
		}
		mockRedis.On("Set", ctx, "AAA", session, time.Hour).Return(errors.New("redis down")).Once()

		uc := NewMemberUseCase(mockRepo, time.Hour, mockRedis, encrypt.HashPassword)
		tok, err := uc.Login(ctx, email, testPassword, now)

		assert.EqualError(t, err, "redis down")
		assert.Empty(t, tok)
		mockRedis.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "UpdateMemberStatus", mock.Anything, mock.Anything)
	})
}

// sessionFixture real member repo + in-memory session store, logged in once
func sessionFixture(t *testing.T) (MemberUseCase, database.RedisRepository[domain.MemberSession], string) {
	t.Helper()
	logger.SetNewNop()
	ctx := context.Background()

	sessions := database.NewMemoryRepository[domain.MemberSession]()
	uc := NewMemberUseCase(repository.NewMemoryMemberRepository(), time.Hour, sessions, encrypt.HashPassword)
	_, err := uc.Register(ctx, domain.RegisterRequest{Email: "a@example.com", Password: testPassword})
	require.NoError(t, err)
	tok, err := uc.Login(ctx, "a@example.com", testPassword, time.Now())
	require.NoError(t, err)
	return uc, sessions, tok
}

func TestMemberUseCase_VerifyAndLogout(t *testing.T) {
	ctx := context.Background()
	uc, _, tok := sessionFixture(t)

	claims, err := uc.Verify(ctx, tok)
	require.NoError(t, err)

	_, err = uc.Verify(ctx, "Bearer "+tok)
	assert.NoError(t, err, "bearer prefix accepted")

	require.NoError(t, uc.Logout(ctx, tok))
	_, err = uc.Verify(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)

	member, err := uc.FindMember(ctx, &domain.MemberQuery{MemberID: &claims.MemberID})
	require.NoError(t, err)
	assert.Equal(t, domain.MemberStatusOffLine, member.Status)
}

func TestMemberUseCase_VerifyRejects(t *testing.T) {
	ctx := context.Background()
	uc, sessions, tok := sessionFixture(t)

	_, err := uc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	// 重新登入後舊 token 失效
	claims, err := token.ParseJWT(tok)
	require.NoError(t, err)
	session, err := sessions.Get(ctx, claims.MemberID)
	require.NoError(t, err)
	session.Token = "newer-token"
	require.NoError(t, sessions.Set(ctx, claims.MemberID, session, time.Hour))

	_, err = uc.Verify(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestMemberUseCase_ReconnectSession(t *testing.T) {
	ctx := context.Background()
	uc, sessions, tok := sessionFixture(t)
	claims, err := token.ParseJWT(tok)
	require.NoError(t, err)

	before, err := sessions.Get(ctx, claims.MemberID)
	require.NoError(t, err)

	require.NoError(t, uc.ReconnectSession(ctx, tok))
	after, err := sessions.Get(ctx, claims.MemberID)
	require.NoError(t, err)
	assert.False(t, after.ExpiredAt.Before(before.ExpiredAt))
	assert.Equal(t, tok, after.Token)
}
