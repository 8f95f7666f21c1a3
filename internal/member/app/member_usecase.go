package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat_relay_service/internal/member/domain"
	"chat_relay_service/internal/member/repository"
	"chat_relay_service/pkg/config"
	"chat_relay_service/pkg/database"
	"chat_relay_service/pkg/logger"
	token "chat_relay_service/pkg/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemberUseCase 這裡封裝了對外提供的應用服務
type MemberUseCase interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Member, error)
	FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error)
	Login(ctx context.Context, email, password string, now time.Time) (string, error)
	Logout(ctx context.Context, token string) error
	ForceLogout(ctx context.Context, memberID string) error
	// ReconnectSession slide the login session forward when a client reconnects
	ReconnectSession(ctx context.Context, token string) error
	// Verify resolve a token to its claims while its login session is live
	Verify(ctx context.Context, token string) (*token.Claims, error)
}

type memberUseCase struct {
	memberRepo   repository.MemberRepository
	sessionTTL   time.Duration
	redisRepo    database.RedisRepository[domain.MemberSession]
	hashPassword func(string) (string, error)
}

// NewMemberUseCase 建立一個新的 MemberUseCase
func NewMemberUseCase(memberRepo repository.MemberRepository,
	sessionTTL time.Duration,
	redisRepo database.RedisRepository[domain.MemberSession],
	hashPassword func(string) (string, error),
) MemberUseCase {
	return &memberUseCase{
		memberRepo:   memberRepo,
		sessionTTL:   sessionTTL,
		redisRepo:    redisRepo,
		hashPassword: hashPassword,
	}
}

// Register
func (m *memberUseCase) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Member, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 檢查 email 是否已存在
	if _, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email}); err == nil {
		return nil, domain.ErrEmailExists
	}

	pw, err := m.hashPassword(req.Password)
	if err != nil {
		logger.Log.Warn("register password rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	// 建立新使用者
	member := domain.Member{
		MemberID: uuid.New().String(),
		Email:    email,
		Username: strings.TrimSpace(req.Username),
		Avatar:   req.Avatar,
		Password: pw,
	}

	if err := m.memberRepo.CreateUser(ctx, &member); err != nil {
		return nil, err
	}
	logger.Log.Info("member registered", zap.String("member_id", member.MemberID))

	member.Password = ""
	return &member, nil
}

// FindMember 尋找使用者
func (m *memberUseCase) FindMember(ctx context.Context, param *domain.MemberQuery) (*domain.Member, error) {
	return m.memberRepo.FindByMember(ctx, param)
}

// Login
func (m *memberUseCase) Login(ctx context.Context, email, password string, now time.Time) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	// 取得使用者
	member, err := m.memberRepo.FindByMember(ctx, &domain.MemberQuery{Email: &email})
	if err != nil {
		logger.Log.Warn("login email not found", zap.String("email", email))
		return "", err
	}
	if !member.Active() {
		return "", domain.ErrMemberDisabled
	}

	if err = member.IsPasswordMatch(password); err != nil {
		logger.Log.Warn("login password mismatch", zap.String("member_id", member.MemberID))
		return "", err
	}

	tok, err := token.GenerateJWTFunc(member.MemberID, string(token.RoleMember), config.EnvConfig.ChatService)
	if err != nil {
		return "", err
	}

	session := domain.MemberSession{
		Token:        tok,
		MemberID:     member.MemberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(m.sessionTTL),
	}
	if err := m.redisRepo.Set(ctx, member.MemberID, session, m.sessionTTL); err != nil {
		return "", err
	}

	member.Status = domain.MemberStatusOnLine
	if err := m.memberRepo.UpdateMemberStatus(ctx, member); err != nil {
		return "", err
	}

	return tok, nil
}

// Logout
func (m *memberUseCase) Logout(ctx context.Context, t string) error {
	tokenInfo, err := token.ParseJWT(t)
	if err != nil {
		logger.Log.Warn("logout token rejected", zap.Error(err))
		return err
	}
	logger.Log.Debug("logout", zap.String("member_id", tokenInfo.MemberID))

	return m.ForceLogout(ctx, tokenInfo.MemberID)
}

// ForceLogout 直接把該 memberID 的 session 清除
func (m *memberUseCase) ForceLogout(ctx context.Context, memberID string) error {
	if err := m.redisRepo.Del(ctx, memberID); err != nil {
		return err
	}

	return m.memberRepo.UpdateMemberStatus(ctx, &domain.Member{
		MemberID: memberID,
		Status:   domain.MemberStatusOffLine,
	})
}

// ReconnectSession 重新連線時延長 session
func (m *memberUseCase) ReconnectSession(ctx context.Context, t string) error {
	claims, err := m.Verify(ctx, t)
	if err != nil {
		return err
	}
	logger.Log.Debug("ReconnectSession", zap.String("member_id", claims.MemberID))

	session, err := m.redisRepo.Get(ctx, claims.MemberID)
	if err != nil {
		return err
	}
	now := time.Now()
	session.LastActivity = now
	session.ExpiredAt = now.Add(m.sessionTTL)
	return m.redisRepo.Set(ctx, claims.MemberID, session, m.sessionTTL)
}

// Verify 驗證 token 以及 redis session 是否仍有效
func (m *memberUseCase) Verify(ctx context.Context, t string) (*token.Claims, error) {
	claims, err := token.ParseJWT(t)
	if err != nil {
		return nil, err
	}

	session, err := m.redisRepo.Get(ctx, claims.MemberID)
	if errors.Is(err, database.ErrCacheMiss) {
		return nil, domain.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	// 重新登入後舊 token 失效
	if session.Token != strings.TrimSpace(strings.TrimPrefix(t, "Bearer ")) || session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionExpired
	}
	return claims, nil
}
