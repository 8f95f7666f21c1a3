package domain

import "errors"

// Error kinds surfaced by the relay; callers match them with errors.Is
var (
	// ErrUnauthorized credentials did not resolve to a member
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRoomNotFound room id does not exist in the store
	ErrRoomNotFound = errors.New("room not found")
	// ErrMessageNotFound message id does not exist in the room
	ErrMessageNotFound = errors.New("message not found")
	// ErrValidation request failed input checks
	ErrValidation = errors.New("validation error")
	// ErrPersistence the store rejected a read or write
	ErrPersistence = errors.New("persistence error")
	// ErrSessionClosed operation on a disconnected session
	ErrSessionClosed = errors.New("session closed")
	// ErrRateLimited sender exceeded its send budget
	ErrRateLimited = errors.New("rate limited")
)
