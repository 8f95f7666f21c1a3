package domain

import (
	"errors"
	"time"

	"chat_relay_service/pkg/encrypt"
)

// MemberStatus 用來表示使用者狀態
type MemberStatus int

// 状态: 0=offline, 1=online, 2=ban ,3=delete
const (
	// MemberStatusOffLine 用來表示使用者狀態為離線
	MemberStatusOffLine MemberStatus = iota
	// MemberStatusOnLine 用來表示使用者狀態為上線
	MemberStatusOnLine
	// MemberStatusBan 用來表示使用者狀態為封鎖
	MemberStatusBan
	// MemberStatusDelete 用來表示使用者狀態為刪除
	MemberStatusDelete
)

var (
	// ErrMemberNotFound no member matched the query
	ErrMemberNotFound = errors.New("no member found with given criteria")
	// ErrEmailExists email already registered
	ErrEmailExists = errors.New("email already exists")
	// ErrSessionExpired token is valid but its session was logged out or timed out
	ErrSessionExpired = errors.New("session expired")
	// ErrMemberDisabled member is banned or deleted
	ErrMemberDisabled = errors.New("member disabled")
)

// Member 用來表示使用者
type Member struct {
	ID       int64
	MemberID string
	Email    string
	Username string
	Avatar   string
	Password string
	Status   MemberStatus
}

// MemberSession 用來表示使用者的 Session
type MemberSession struct {
	Token        string    `json:"Token"`
	MemberID     string    `json:"MemberID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// Profile 顯示用資料, cached in redis
type Profile struct {
	MemberID string `json:"member_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// RegisterRequest body of POST /member/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"omitempty,max=64"`
	Avatar   string `json:"avatar" validate:"omitempty,url"`
}

// LoginRequest body of POST /member/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// IsPasswordMatch 密碼驗證
func (m *Member) IsPasswordMatch(inputPwd string) error {
	return encrypt.CheckPassword(m.Password, inputPwd)
}

// Active banned or deleted members cannot log in
func (m *Member) Active() bool {
	return m.Status == MemberStatusOffLine || m.Status == MemberStatusOnLine
}

// Profile display attributes, the username falls back to the email
func (m *Member) Profile() Profile {
	name := m.Username
	if name == "" {
		name = m.Email
	}
	return Profile{MemberID: m.MemberID, Username: name, Avatar: m.Avatar}
}

// IsExpired 檢查 Session 是否已過期
func (s *MemberSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiredAt)
}

// MemberQuery join conditions are used to query members
type MemberQuery struct {
	ID       *int64  `db:"id"`
	MemberID *string `db:"member_id"`
	Email    *string `db:"email"`
}
