package repository

import (
	"context"
	"sync"

	"chat_relay_service/internal/member/domain"
)

// memoryMemberRepository MemberRepository for storage: memory
type memoryMemberRepository struct {
	mu      sync.RWMutex
	nextID  int64
	members map[string]*domain.Member // key member_id
}

// NewMemoryMemberRepository create a MemberRepository kept in process memory
func NewMemoryMemberRepository() MemberRepository {
	return &memoryMemberRepository{members: make(map[string]*domain.Member)}
}

func (r *memoryMemberRepository) CreateUser(_ context.Context, member *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Email == member.Email {
			return domain.ErrEmailExists
		}
	}
	r.nextID++
	cp := *member
	cp.ID = r.nextID
	r.members[cp.MemberID] = &cp
	member.ID = cp.ID
	return nil
}

func (r *memoryMemberRepository) UpdateMemberStatus(_ context.Context, member *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[member.MemberID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.Status = member.Status
	return nil
}

func (r *memoryMemberRepository) FindByMember(_ context.Context, q *domain.MemberQuery) (*domain.Member, error) {
	if q.Email == nil && q.MemberID == nil && q.ID == nil {
		return nil, domain.ErrMemberNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if q.Email != nil && m.Email != *q.Email {
			continue
		}
		if q.MemberID != nil && m.MemberID != *q.MemberID {
			continue
		}
		if q.ID != nil && m.ID != *q.ID {
			continue
		}
		cp := *m
		return &cp, nil
	}
	return nil, domain.ErrMemberNotFound
}

func (r *memoryMemberRepository) FindByMemberIDs(_ context.Context, memberIDs []string) ([]domain.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Member
	for _, id := range memberIDs {
		if m, ok := r.members[id]; ok {
			cp := *m
			cp.Password = ""
			out = append(out, cp)
		}
	}
	return out, nil
}
