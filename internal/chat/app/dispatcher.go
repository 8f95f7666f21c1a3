package app

import (
	"encoding/json"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/metrics"

	"go.uber.org/zap"
)

// Broadcaster fan an event out to a room
type Broadcaster interface {
	Broadcast(roomID string, event domain.WSResponse) int
}

// Dispatcher delivers events to the sessions joined to a room
//
// Delivery is at-most-once and best-effort: the member set is snapshotted at
// dispatch time, each session gets one non-blocking enqueue, and a session
// whose queue is full or closed just misses the event. Nothing is retried,
// acknowledged, or replayed.
type Dispatcher struct {
	index *MembershipIndex
}

// NewDispatcher create a Dispatcher over index
func NewDispatcher(index *MembershipIndex) *Dispatcher {
	return &Dispatcher{index: index}
}

// Broadcast encode event once and deliver it, returns the sessions reached
func (d *Dispatcher) Broadcast(roomID string, event domain.WSResponse) int {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("broadcast encode failed", zap.String("room_id", roomID), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, s := range d.index.Members(roomID) {
		if s.Deliver(payload) {
			delivered++
			metrics.BroadcastDelivered.Inc()
			continue
		}
		metrics.BroadcastDropped.Inc()
		logger.Log.Warn("broadcast dropped",
			zap.String("room_id", roomID),
			zap.String("session_id", s.ID),
			zap.String("state", s.State().String()),
		)
	}
	return delivered
}

// messageEvent outbound event for a new room message
func messageEvent(view domain.MessageView) domain.WSResponse {
	return domain.WSResponse{
		Action:  string(domain.NotifyMessage),
		Success: true,
		Payload: map[string]interface{}{
			"room_id": view.RoomID,
			"message": view,
		},
	}
}
