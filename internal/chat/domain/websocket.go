package domain

// Action websocket request action
type Action string

const (
	// Authenticate websocket action authenticate
	Authenticate Action = "authenticate"
	// JoinRoom websocket action join_room
	JoinRoom Action = "join_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"
	// ListMessages websocket action list_messages
	ListMessages Action = "list_messages"

	// NotifyMessage broadcast of a new room message
	NotifyMessage Action = "message"
	// NotifyError reply to a frame that could not be decoded
	NotifyError Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action    string `json:"action"`
	RoomID    string `json:"room_id"`
	Content   string `json:"content"`
	MessageID string `json:"message_id"`
	Token     string `json:"token,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
