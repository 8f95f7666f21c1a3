package repository

import (
	"context"
	"errors"
	"time"

	"chat_relay_service/internal/chat/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const roomsCollection = "rooms"

// RoomRepository definition chat room storage
type RoomRepository interface {
	// CreateRoom assigns ID when empty and both timestamps
	CreateRoom(ctx context.Context, room *domain.Room) error
	// FindByID returns domain.ErrRoomNotFound when absent
	FindByID(ctx context.Context, roomID string) (*domain.Room, error)
	// UpdateRoom overwrites name and admin
	UpdateRoom(ctx context.Context, room *domain.Room) error
	// SetLatestMessage point the room at messageID
	SetLatestMessage(ctx context.Context, roomID, messageID string) error
	// AddMember add memberID to the persisted member set
	AddMember(ctx context.Context, roomID, memberID string) error
	// RemoveMember drop memberID from the persisted member set
	RemoveMember(ctx context.Context, roomID, memberID string) error
}

type mongoRoomRepository struct {
	coll *mongo.Collection
}

// NewMongoRoomRepository create new mongo room repository
func NewMongoRoomRepository(db *mongo.Database) RoomRepository {
	return &mongoRoomRepository{coll: db.Collection(roomsCollection)}
}

func prepareRoom(room *domain.Room) {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.Members == nil {
		room.Members = []string{}
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	room.CreatedAt = now
	room.UpdatedAt = now
}

func (r *mongoRoomRepository) CreateRoom(ctx context.Context, room *domain.Room) error {
	prepareRoom(room)
	_, err := r.coll.InsertOne(ctx, room)
	return err
}

func (r *mongoRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.coll.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	if room.Members == nil {
		room.Members = []string{}
	}
	return &room, nil
}

func (r *mongoRoomRepository) UpdateRoom(ctx context.Context, room *domain.Room) error {
	room.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return r.update(ctx, room.ID, bson.M{"$set": bson.M{
		"name":       room.Name,
		"admin":      room.Admin,
		"updated_at": room.UpdatedAt,
	}})
}

func (r *mongoRoomRepository) SetLatestMessage(ctx context.Context, roomID, messageID string) error {
	return r.update(ctx, roomID, bson.M{"$set": bson.M{
		"latest_message": messageID,
		"updated_at":     time.Now().UTC().Truncate(time.Millisecond),
	}})
}

func (r *mongoRoomRepository) AddMember(ctx context.Context, roomID, memberID string) error {
	return r.update(ctx, roomID, bson.M{
		"$addToSet": bson.M{"members": memberID},
		"$set":      bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	})
}

func (r *mongoRoomRepository) RemoveMember(ctx context.Context, roomID, memberID string) error {
	return r.update(ctx, roomID, bson.M{
		"$pull": bson.M{"members": memberID},
		"$set":  bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	})
}

func (r *mongoRoomRepository) update(ctx context.Context, roomID string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}
