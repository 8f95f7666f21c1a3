package domain

import "time"

// Message one chat message
//
// ID and CreatedAt are assigned by the store; only ReadBy changes afterwards.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	SenderID  string    `bson:"sender" json:"sender"`
	Content   string    `bson:"content" json:"content"`
	RoomID    string    `bson:"room" json:"room"`
	ReadBy    []string  `bson:"read_by" json:"read_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SenderProfile display attributes of a member
type SenderProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// MessageView message enriched for clients, never stored
type MessageView struct {
	Message
	Sender SenderProfile `json:"sender_profile"`
}

// SendMessageRequest input of the REST send endpoint
type SendMessageRequest struct {
	RoomID  string `json:"room_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// SendResult outcome of a successful send
//
// PointerErr is set when the message was stored and broadcast but the room's
// latest message pointer could not be updated.
type SendResult struct {
	Message    MessageView
	Delivered  int
	PointerErr error
}

// LatestPointerUpdated report whether the room pointer follows the message
func (r *SendResult) LatestPointerUpdated() bool {
	return r.PointerErr == nil
}
