package domain

import "time"

// Room a named chat room
//
// LatestMessage, when set, is the id of a message whose Room is this room.
type Room struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	LatestMessage string    `bson:"latest_message,omitempty" json:"latest_message,omitempty"`
	Members       []string  `bson:"members" json:"members"`
	Admin         string    `bson:"admin,omitempty" json:"admin,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// CreateRoomRequest input of room creation
type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}
