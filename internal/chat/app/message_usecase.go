package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/internal/chat/repository"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/metrics"

	"go.uber.org/zap"
)

// MessageConfig limits applied by SendMessageUseCase
type MessageConfig struct {
	MaxContentLength int
	StoreTimeout     time.Duration
	// EventTimeout bounds one message.created publish, which runs after the broadcast
	EventTimeout time.Duration
}

// SendMessageUseCase 負責處理聊天訊息: send, history and read markers
type SendMessageUseCase struct {
	roomRepo    repository.RoomRepository
	msgRepo     repository.MessageRepository
	auth        AuthGate
	profiles    ProfileDirectory
	broadcaster Broadcaster
	events      repository.MessageEventPublisher
	cfg         MessageConfig

	publishing sync.WaitGroup
}

// NewSendMessageUseCase init message use case
func NewSendMessageUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	auth AuthGate,
	profiles ProfileDirectory,
	broadcaster Broadcaster,
	events repository.MessageEventPublisher,
	cfg MessageConfig,
) *SendMessageUseCase {
	if events == nil {
		events = repository.NewNoopMessagePublisher()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 2 * time.Second
	}
	return &SendMessageUseCase{
		roomRepo:    roomRepo,
		msgRepo:     msgRepo,
		auth:        auth,
		profiles:    profiles,
		broadcaster: broadcaster,
		events:      events,
		cfg:         cfg,
	}
}

func (uc *SendMessageUseCase) verify(ctx context.Context, credentials string) (Identity, error) {
	id, err := uc.auth.Verify(ctx, credentials)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return id, nil
}

// Execute send content to roomID as the member behind credentials
//
// The message is stored before anything is broadcast. Once stored the send
// succeeds even if the room pointer update, enrichment, event publishing or
// delivery to some sessions fails; a pointer failure is reported in
// SendResult.PointerErr. The message.created event is published in the
// background after the broadcast, so a slow broker never delays delivery.
func (uc *SendMessageUseCase) Execute(ctx context.Context, roomID, content, credentials string) (*domain.SendResult, error) {
	sender, err := uc.verify(ctx, credentials)
	if err != nil {
		metrics.SendRejected.WithLabelValues("unauthorized").Inc()
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		metrics.SendRejected.WithLabelValues("validation").Inc()
		return nil, validationErr("content is required")
	}
	if uc.cfg.MaxContentLength > 0 && utf8.RuneCountInString(content) > uc.cfg.MaxContentLength {
		metrics.SendRejected.WithLabelValues("validation").Inc()
		return nil, validationErr(fmt.Sprintf("content longer than %d characters", uc.cfg.MaxContentLength))
	}

	// 送出後不受連線中斷影響
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.StoreTimeout)
	defer cancel()

	room, err := uc.roomRepo.FindByID(storeCtx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		metrics.SendRejected.WithLabelValues("room_not_found").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		metrics.SendRejected.WithLabelValues("persistence").Inc()
		return nil, persistenceErr("find room", err)
	}

	msg := domain.Message{
		SenderID: sender.MemberID,
		Content:  content,
		RoomID:   room.ID,
		ReadBy:   []string{sender.MemberID},
	}
	if err := uc.msgRepo.CreateMessage(storeCtx, &msg); err != nil {
		metrics.SendRejected.WithLabelValues("persistence").Inc()
		logger.Log.Error("store message failed", zap.String("room_id", room.ID), zap.String("sender", sender.MemberID), zap.Error(err))
		return nil, persistenceErr("create message", err)
	}
	metrics.MessagesSent.Inc()

	result := &domain.SendResult{}
	if err := uc.roomRepo.SetLatestMessage(storeCtx, room.ID, msg.ID); err != nil {
		result.PointerErr = persistenceErr("set latest message", err)
		metrics.LatestPointerFailures.Inc()
		logger.Log.Error("latest message pointer not updated",
			zap.String("room_id", room.ID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}

	result.Message = uc.enrich(storeCtx, []domain.Message{msg})[0]

	result.Delivered = uc.broadcaster.Broadcast(room.ID, messageEvent(result.Message))
	logger.Log.Debug("message relayed",
		zap.String("room_id", room.ID),
		zap.String("message_id", msg.ID),
		zap.Int("delivered", result.Delivered),
	)

	uc.publish(ctx, result.Message)
	return result, nil
}

// publish 背景送出 message.created, 失敗只記錄
func (uc *SendMessageUseCase) publish(ctx context.Context, view domain.MessageView) {
	uc.publishing.Add(1)
	go func() {
		defer uc.publishing.Done()

		eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.EventTimeout)
		defer cancel()
		if err := uc.events.PublishMessageCreated(eventCtx, view); err != nil {
			metrics.EventPublishFailures.Inc()
			logger.Log.Warn("message.created not published", zap.String("message_id", view.ID), zap.Error(err))
		}
	}()
}

// Flush wait for in-flight message.created publishes, call before closing the publisher
func (uc *SendMessageUseCase) Flush() {
	uc.publishing.Wait()
}

// History every message of roomID oldest first, enriched with sender profiles
//
// A room without messages, or one that does not exist, yields an empty list.
func (uc *SendMessageUseCase) History(ctx context.Context, roomID, credentials string) ([]domain.MessageView, error) {
	if _, err := uc.verify(ctx, credentials); err != nil {
		return nil, err
	}

	msgs, err := uc.msgRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, persistenceErr("list messages", err)
	}
	return uc.enrich(ctx, msgs), nil
}

// MarkRead 已讀: add the caller to the message's read_by set
func (uc *SendMessageUseCase) MarkRead(ctx context.Context, roomID, messageID, credentials string) error {
	reader, err := uc.verify(ctx, credentials)
	if err != nil {
		return err
	}
	if roomID == "" || messageID == "" {
		return validationErr("room_id and message_id are required")
	}

	err = uc.msgRepo.MarkRead(ctx, roomID, messageID, reader.MemberID)
	if errors.Is(err, domain.ErrMessageNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, messageID)
	}
	if err != nil {
		return persistenceErr("mark read", err)
	}
	return nil
}

// enrich attach sender profiles; lookup failures fall back to the sender id
func (uc *SendMessageUseCase) enrich(ctx context.Context, msgs []domain.Message) []domain.MessageView {
	views := make([]domain.MessageView, len(msgs))
	if len(msgs) == 0 {
		return views
	}

	ids := make([]string, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}

	profiles, err := uc.profiles.Profiles(ctx, ids)
	if err != nil {
		logger.Log.Warn("sender profiles unavailable", zap.Strings("ids", ids), zap.Error(err))
	}

	for i, m := range msgs {
		p, ok := profiles[m.SenderID]
		if !ok {
			p = domain.SenderProfile{ID: m.SenderID, Username: m.SenderID}
		}
		views[i] = domain.MessageView{Message: m, Sender: p}
	}
	return views
}
