package repository

import (
	"context"
	"time"

	"chat_relay_service/internal/chat/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

// MessageRepository definition chat message storage
type MessageRepository interface {
	// CreateMessage assigns ID and CreatedAt, CreatedAt increases strictly per store
	CreateMessage(ctx context.Context, msg *domain.Message) error
	// ListByRoom every message of the room, oldest first
	ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
	// MarkRead add memberID to read_by, domain.ErrMessageNotFound when absent
	MarkRead(ctx context.Context, roomID, messageID, memberID string) error
}

type mongoMessageRepository struct {
	coll  *mongo.Collection
	clock *Clock
}

// NewMongoMessageRepository create a MessageRepository on mongo
func NewMongoMessageRepository(db *mongo.Database, clock *Clock) MessageRepository {
	return &mongoMessageRepository{
		coll:  db.Collection(messagesCollection),
		clock: clock,
	}
}

// EnsureMongoIndexes create the (room, created_at) index used by history reads
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("room_created_at"),
	})
	return err
}

func prepareMessage(msg *domain.Message, clock *Clock) {
	msg.ID = uuid.NewString()
	msg.CreatedAt = clock.Next()
	msg.UpdatedAt = msg.CreatedAt
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}
}

func (r *mongoMessageRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	prepareMessage(msg, r.clock)
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *mongoMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"room": roomID}, opts)
	if err != nil {
		return nil, err
	}
	msgs := []domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *mongoMessageRepository) MarkRead(ctx context.Context, roomID, messageID, memberID string) error {
	filter := bson.M{"_id": messageID, "room": roomID}
	update := bson.M{
		"$addToSet": bson.M{"read_by": memberID},
		"$set":      bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}
