package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chat_relay_service/internal/member/domain"
)

// MemberRepository definition get Member info
type MemberRepository interface {
	CreateUser(ctx context.Context, user *domain.Member) error
	UpdateMemberStatus(ctx context.Context, user *domain.Member) error
	FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error)
	// FindByMemberIDs unknown ids are skipped
	FindByMemberIDs(ctx context.Context, memberIDs []string) ([]domain.Member, error)
}

const memberSchema = `
CREATE TABLE IF NOT EXISTS member (
	id         BIGSERIAL PRIMARY KEY,
	member_id  VARCHAR(64)  NOT NULL UNIQUE,
	email      VARCHAR(255) NOT NULL UNIQUE,
	username   VARCHAR(64)  NOT NULL DEFAULT '',
	avatar     TEXT         NOT NULL DEFAULT '',
	password   VARCHAR(255) NOT NULL,
	status     SMALLINT     NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
)`

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

// EnsureSchema create the member table when missing
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, memberSchema)
	return err
}

func (r *memberRepository) CreateUser(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO member(member_id, email, username, avatar, password) VALUES ($1, $2, $3, $4, $5)",
		member.MemberID, member.Email, member.Username, member.Avatar, member.Password)
	return err
}

func (r *memberRepository) UpdateMemberStatus(ctx context.Context, member *domain.Member) error {
	tag, err := r.db.Exec(ctx, "UPDATE member SET status = $1 WHERE member_id = $2", int16(member.Status), member.MemberID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *memberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	queryStr := "SELECT id, member_id, email, username, avatar, password, status FROM member WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if memberQuery.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *memberQuery.Email)
		paramCount++
	}
	if memberQuery.MemberID != nil {
		queryStr += fmt.Sprintf(" AND member_id = $%d", paramCount)
		params = append(params, *memberQuery.MemberID)
		paramCount++
	}
	if memberQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *memberQuery.ID)
	}
	if len(params) == 0 {
		return nil, domain.ErrMemberNotFound
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var member domain.Member
	var status int16
	err := row.Scan(&member.ID, &member.MemberID, &member.Email, &member.Username, &member.Avatar, &member.Password, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	member.Status = domain.MemberStatus(status)

	return &member, nil
}

func (r *memberRepository) FindByMemberIDs(ctx context.Context, memberIDs []string) ([]domain.Member, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT id, member_id, email, username, avatar, status FROM member WHERE member_id = ANY($1)", memberIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		var status int16
		if err := rows.Scan(&m.ID, &m.MemberID, &m.Email, &m.Username, &m.Avatar, &status); err != nil {
			return nil, err
		}
		m.Status = domain.MemberStatus(status)
		members = append(members, m)
	}
	return members, rows.Err()
}
