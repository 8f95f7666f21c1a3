package app

import (
	"context"
	"errors"
	"time"

	"chat_relay_service/internal/member/domain"
	"chat_relay_service/internal/member/repository"
	"chat_relay_service/pkg/database"
	"chat_relay_service/pkg/logger"

	"go.uber.org/zap"
)

// ProfileService member display attributes, read through a redis cache
type ProfileService struct {
	memberRepo repository.MemberRepository
	cache      database.RedisRepository[domain.Profile]
	ttl        time.Duration
}

// NewProfileService create ProfileService
func NewProfileService(memberRepo repository.MemberRepository, cache database.RedisRepository[domain.Profile], ttl time.Duration) *ProfileService {
	return &ProfileService{memberRepo: memberRepo, cache: cache, ttl: ttl}
}

// Profiles look up memberIDs, unknown members are absent from the result
func (p *ProfileService) Profiles(ctx context.Context, memberIDs []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(memberIDs))
	var misses []string

	for _, id := range memberIDs {
		prof, err := p.cache.Get(ctx, id)
		if err == nil {
			out[id] = prof
			continue
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			// cache 故障時直接查 DB
			logger.Log.Warn("profile cache read failed", zap.String("member_id", id), zap.Error(err))
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}

	members, err := p.memberRepo.FindByMemberIDs(ctx, misses)
	if err != nil {
		return out, err
	}
	for _, m := range members {
		prof := m.Profile()
		out[m.MemberID] = prof
		if err := p.cache.Set(ctx, m.MemberID, prof, p.ttl); err != nil {
			logger.Log.Warn("profile cache write failed", zap.String("member_id", m.MemberID), zap.Error(err))
		}
	}
	return out, nil
}
