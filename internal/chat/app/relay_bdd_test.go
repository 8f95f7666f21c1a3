package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/internal/chat/repository"
	"chat_relay_service/pkg/logger"

	"github.com/cucumber/godog"
)

func TestRelayFeatures(t *testing.T) {
	logger.SetNewNop()
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeRelayScenario,
		Options: &godog.Options{
			Paths:    []string{"./featureFiles"}, // 指向 feature 檔相對路徑
			Format:   "pretty",
			Output:   os.Stdout,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("relay features failed")
	}
}

// relayWorld state of one scenario
type relayWorld struct {
	store    *repository.MemoryStore
	conns    *ConnectionManager
	index    *MembershipIndex
	messages *SendMessageUseCase
	rooms    *RoomUseCase

	roomIDs     map[string]string
	sessions    map[string]*domain.Session
	credentials map[string]string

	lastResult *domain.SendResult
	lastErr    error
}

func newRelayWorld() *relayWorld {
	store := repository.NewMemoryStore(repository.NewClock())
	index := NewMembershipIndex()
	return &relayWorld{
		store:       store,
		index:       index,
		conns:       NewConnectionManager(index, 8),
		messages:    NewSendMessageUseCase(store, store, fakeAuth{}, &fakeProfiles{}, NewDispatcher(index), nil, MessageConfig{MaxContentLength: 100, StoreTimeout: time.Second}),
		rooms:       NewRoomUseCase(store, fakeAuth{}),
		roomIDs:     map[string]string{},
		sessions:    map[string]*domain.Session{},
		credentials: map[string]string{},
	}
}

func (w *relayWorld) roomID(name string) string {
	if id, ok := w.roomIDs[name]; ok {
		return id
	}
	return name
}

func (w *relayWorld) aRoomExists(name string) error {
	room, err := w.rooms.Create(context.Background(), name, "")
	if err != nil {
		return err
	}
	w.roomIDs[name] = room.ID
	return nil
}

func (w *relayWorld) join(session, room string) error {
	s := w.conns.Connect()
	w.sessions[session] = s
	return w.conns.Join(s, w.roomID(room))
}

func (w *relayWorld) memberSessionJoins(session, member, room string) error {
	w.credentials[session] = "token-" + member
	return w.join(session, room)
}

func (w *relayWorld) anonymousSessionJoins(session, room string) error {
	return w.join(session, room)
}

func (w *relayWorld) sessionSends(session, content, room string) error {
	w.lastResult, w.lastErr = w.messages.Execute(context.Background(), w.roomID(room), content, w.credentials[session])
	return nil
}

func (w *relayWorld) sessionDisconnects(session string) error {
	w.conns.Disconnect(w.sessions[session])
	return nil
}

func (w *relayWorld) theSendSucceeds() error {
	if w.lastErr != nil {
		return fmt.Errorf("send failed: %w", w.lastErr)
	}
	return nil
}

func (w *relayWorld) theSendFailsWith(text string) error {
	if w.lastErr == nil {
		return fmt.Errorf("send succeeded, want %q", text)
	}
	if !strings.Contains(w.lastErr.Error(), text) {
		return fmt.Errorf("error %q does not mention %q", w.lastErr, text)
	}
	return nil
}

func (w *relayWorld) drain(session string) []string {
	var contents []string
	for {
		select {
		case raw, ok := <-w.sessions[session].Outbound():
			if !ok {
				return contents
			}
			var ev struct {
				Payload struct {
					Message domain.MessageView `json:"message"`
				} `json:"payload"`
			}
			if err := json.Unmarshal(raw, &ev); err == nil {
				contents = append(contents, ev.Payload.Message.Content)
			}
		default:
			return contents
		}
	}
}

func (w *relayWorld) sessionReceives(session, content string) error {
	got := w.drain(session)
	if len(got) != 1 || got[0] != content {
		return fmt.Errorf("session %s received %v, want [%s]", session, got, content)
	}
	return nil
}

func (w *relayWorld) sessionReceivesNothing(session string) error {
	if got := w.drain(session); len(got) > 0 {
		return fmt.Errorf("session %s received %v", session, got)
	}
	return nil
}

func (w *relayWorld) historyIsExactly(room, content string) error {
	views, err := w.messages.History(context.Background(), w.roomID(room), "token-auditor")
	if err != nil {
		return err
	}
	if len(views) != 1 || views[0].Content != content {
		return fmt.Errorf("history has %d messages", len(views))
	}
	return nil
}

func (w *relayWorld) historyIsEmpty(room string) error {
	views, err := w.messages.History(context.Background(), w.roomID(room), "token-auditor")
	if err != nil {
		return err
	}
	if len(views) != 0 {
		return fmt.Errorf("history has %d messages", len(views))
	}
	return nil
}

func (w *relayWorld) latestMessageIs(room, content string) error {
	r, err := w.store.FindByID(context.Background(), w.roomID(room))
	if err != nil {
		return err
	}
	if w.lastResult == nil || r.LatestMessage != w.lastResult.Message.ID || w.lastResult.Message.Content != content {
		return fmt.Errorf("latest message %q does not point at %q", r.LatestMessage, content)
	}
	return nil
}

func (w *relayWorld) sessionIsInNoRoom(session string) error {
	s := w.sessions[session]
	if rooms := s.Rooms(); len(rooms) > 0 {
		return fmt.Errorf("session still lists rooms %v", rooms)
	}
	for _, id := range w.roomIDs {
		if w.index.Contains(id, s.ID) {
			return fmt.Errorf("index still holds session in %s", id)
		}
	}
	return nil
}

func (w *relayWorld) messageReached(n int) error {
	if w.lastResult == nil || w.lastResult.Delivered != n {
		return fmt.Errorf("delivered to %v sessions, want %d", w.lastResult, n)
	}
	return nil
}

// InitializeRelayScenario 註冊 Gherkin 與 Step Definition 的對應
func InitializeRelayScenario(s *godog.ScenarioContext) {
	w := newRelayWorld()

	s.Step(`^a room "([^"]*)" exists$`, w.aRoomExists)
	s.Step(`^session "([^"]*)" of member "([^"]*)" joins "([^"]*)"$`, w.memberSessionJoins)
	s.Step(`^anonymous session "([^"]*)" joins "([^"]*)"$`, w.anonymousSessionJoins)
	s.Step(`^session "([^"]*)" sends "([^"]*)" to "([^"]*)"$`, w.sessionSends)
	s.Step(`^session "([^"]*)" disconnects$`, w.sessionDisconnects)
	s.Step(`^the send succeeds$`, w.theSendSucceeds)
	s.Step(`^the send fails with "([^"]*)"$`, w.theSendFailsWith)
	s.Step(`^session "([^"]*)" receives "([^"]*)"$`, w.sessionReceives)
	s.Step(`^session "([^"]*)" receives nothing$`, w.sessionReceivesNothing)
	s.Step(`^the history of "([^"]*)" is exactly "([^"]*)"$`, w.historyIsExactly)
	s.Step(`^the history of "([^"]*)" is empty$`, w.historyIsEmpty)
	s.Step(`^the latest message of "([^"]*)" is "([^"]*)"$`, w.latestMessageIs)
	s.Step(`^session "([^"]*)" is in no room$`, w.sessionIsInNoRoom)
	s.Step(`^the message reached (\d+) sessions?$`, w.messageReached)
}
