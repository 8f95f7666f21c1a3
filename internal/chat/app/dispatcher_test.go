package app

import (
	"encoding/json"
	"testing"
	"time"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Broadcast(t *testing.T) {
	logger.SetNewNop()
	idx := NewMembershipIndex()
	d := NewDispatcher(idx)

	sender := domain.NewSession("sender", 4)
	peer := domain.NewSession("peer", 4)
	outsider := domain.NewSession("outsider", 4)
	idx.Join("general", sender)
	idx.Join("general", peer)
	idx.Join("random", outsider)

	view := domain.MessageView{
		Message: domain.Message{ID: "m1", SenderID: "u1", Content: "hi", RoomID: "general", ReadBy: []string{"u1"}, CreatedAt: time.Now()},
		Sender:  domain.SenderProfile{ID: "u1", Username: "alice"},
	}
	assert.Equal(t, 2, d.Broadcast("general", messageEvent(view)))

	for _, s := range []*domain.Session{sender, peer} {
		select {
		case raw := <-s.Outbound():
			var got struct {
				Action  string `json:"action"`
				Success bool   `json:"success"`
				Payload struct {
					RoomID  string             `json:"room_id"`
					Message domain.MessageView `json:"message"`
				} `json:"payload"`
			}
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, "message", got.Action)
			assert.True(t, got.Success)
			assert.Equal(t, "general", got.Payload.RoomID)
			assert.Equal(t, "hi", got.Payload.Message.Content)
			assert.Equal(t, "alice", got.Payload.Message.Sender.Username)
		default:
			t.Fatalf("session %s got nothing", s.ID)
		}
	}
	assert.Empty(t, outsider.Outbound(), "other rooms see nothing")
}

func TestDispatcher_SlowSessionDoesNotBlockOthers(t *testing.T) {
	logger.SetNewNop()
	idx := NewMembershipIndex()
	d := NewDispatcher(idx)

	slow := domain.NewSession("slow", 1)
	fast := domain.NewSession("fast", 8)
	closed := domain.NewSession("closed", 1)
	idx.Join("r", slow)
	idx.Join("r", fast)
	idx.Join("r", closed)
	closed.Close()

	ev := domain.WSResponse{Action: "message", Success: true}
	assert.Equal(t, 2, d.Broadcast("r", ev))
	assert.Equal(t, 1, d.Broadcast("r", ev), "slow queue is full, closed never receives")

	assert.Len(t, fast.Outbound(), 2)
	assert.Len(t, slow.Outbound(), 1)
	assert.Equal(t, uint64(1), slow.Dropped())
}

func TestDispatcher_EmptyRoom(t *testing.T) {
	d := NewDispatcher(NewMembershipIndex())
	assert.Zero(t, d.Broadcast("nobody", domain.WSResponse{Action: "message"}))
}

func TestDispatcher_LateJoinerMissesEarlierMessage(t *testing.T) {
	logger.SetNewNop()
	idx := NewMembershipIndex()
	d := NewDispatcher(idx)

	early := domain.NewSession("early", 4)
	idx.Join("general", early)

	first := domain.MessageView{Message: domain.Message{ID: "m1", Content: "before", RoomID: "general"}}
	require.Equal(t, 1, d.Broadcast("general", messageEvent(first)))

	late := domain.NewSession("late", 4)
	idx.Join("general", late)
	assert.Empty(t, late.Outbound(), "m1 was dispatched before the join")

	second := domain.MessageView{Message: domain.Message{ID: "m2", Content: "after", RoomID: "general"}}
	require.Equal(t, 2, d.Broadcast("general", messageEvent(second)))
	assert.Len(t, late.Outbound(), 1)
	assert.Len(t, early.Outbound(), 2)
}
