package repository

import (
	"context"
	"errors"
	"time"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roomRecord struct {
	ID            string   `gorm:"primaryKey;type:varchar(36)"`
	Name          string   `gorm:"not null"`
	LatestMessage string   `gorm:"type:varchar(36)"`
	Members       []string `gorm:"serializer:json"`
	Admin         string   `gorm:"type:varchar(36)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (roomRecord) TableName() string { return "rooms" }

type messageRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	RoomID    string    `gorm:"type:varchar(36);not null;index:idx_messages_room_created,priority:1"`
	SenderID  string    `gorm:"type:varchar(36);not null"`
	Content   string    `gorm:"type:text;not null"`
	ReadBy    []string  `gorm:"serializer:json"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2"`
	UpdatedAt time.Time
}

func (messageRecord) TableName() string { return "messages" }

func toRoomRecord(r *domain.Room) roomRecord {
	return roomRecord{
		ID:            r.ID,
		Name:          r.Name,
		LatestMessage: r.LatestMessage,
		Members:       r.Members,
		Admin:         r.Admin,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (rec roomRecord) toDomain() *domain.Room {
	members := rec.Members
	if members == nil {
		members = []string{}
	}
	return &domain.Room{
		ID:            rec.ID,
		Name:          rec.Name,
		LatestMessage: rec.LatestMessage,
		Members:       members,
		Admin:         rec.Admin,
		CreatedAt:     rec.CreatedAt.UTC(),
		UpdatedAt:     rec.UpdatedAt.UTC(),
	}
}

func (rec messageRecord) toDomain() domain.Message {
	readBy := rec.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return domain.Message{
		ID:        rec.ID,
		SenderID:  rec.SenderID,
		Content:   rec.Content,
		RoomID:    rec.RoomID,
		ReadBy:    readBy,
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

// GormStore rooms and messages in a relational database
type GormStore struct {
	db    *gorm.DB
	clock *Clock
}

// NewGormStore create a gorm backed room+message store
func NewGormStore(db *gorm.DB, clock *Clock) *GormStore {
	return &GormStore{db: db, clock: clock}
}

// Migrate create or update the rooms and messages tables
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&roomRecord{}, &messageRecord{})
}

// CreateRoom insert a room
func (s *GormStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	prepareRoom(room)
	rec := toRoomRecord(room)
	return s.db.WithContext(ctx).Create(&rec).Error
}

// FindByID load a room
func (s *GormStore) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	var rec roomRecord
	err := s.db.WithContext(ctx).Where("id = ?", roomID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// UpdateRoom overwrite name and admin
func (s *GormStore) UpdateRoom(ctx context.Context, room *domain.Room) error {
	room.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return s.updateRoom(ctx, room.ID, map[string]interface{}{
		"name":       room.Name,
		"admin":      room.Admin,
		"updated_at": room.UpdatedAt,
	})
}

// SetLatestMessage point the room at messageID
func (s *GormStore) SetLatestMessage(ctx context.Context, roomID, messageID string) error {
	return s.updateRoom(ctx, roomID, map[string]interface{}{
		"latest_message": messageID,
		"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
	})
}

func (s *GormStore) updateRoom(ctx context.Context, roomID string, columns map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&roomRecord{}).Where("id = ?", roomID).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

// AddMember add memberID to the member set
func (s *GormStore) AddMember(ctx context.Context, roomID, memberID string) error {
	return s.mutateMembers(ctx, roomID, func(members []string) []string {
		return pkg.AppendUnique(members, memberID)
	})
}

// RemoveMember drop memberID from the member set
func (s *GormStore) RemoveMember(ctx context.Context, roomID, memberID string) error {
	return s.mutateMembers(ctx, roomID, func(members []string) []string {
		return pkg.Remove(members, memberID)
	})
}

// mutateMembers read-modify-write of the json members column under a row lock
func (s *GormStore) mutateMembers(ctx context.Context, roomID string, fn func([]string) []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec roomRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", roomID).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		rec.Members = fn(rec.Members)
		if rec.Members == nil {
			rec.Members = []string{}
		}
		rec.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
		return tx.Model(&rec).Select("members", "updated_at").Updates(&rec).Error
	})
}

// CreateMessage insert a message
func (s *GormStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	prepareMessage(msg, s.clock)
	rec := messageRecord{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		ReadBy:    msg.ReadBy,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// ListByRoom messages of a room, oldest first
func (s *GormStore) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	var recs []messageRecord
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// MarkRead add memberID to read_by under a row lock
func (s *GormStore) MarkRead(ctx context.Context, roomID, messageID, memberID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec messageRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND room_id = ?", messageID, roomID).
			Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if pkg.Contains(rec.ReadBy, memberID) {
			return nil
		}
		rec.ReadBy = append(rec.ReadBy, memberID)
		rec.UpdatedAt = time.Now().UTC()
		return tx.Model(&rec).Select("read_by", "updated_at").Updates(&rec).Error
	})
}
