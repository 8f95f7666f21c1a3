package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/metrics"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebsocketConfig per connection tuning
type WebsocketConfig struct {
	SendRate     float64
	SendBurst    int
	PingInterval time.Duration
}

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	conns     *ConnectionManager
	messageUC *SendMessageUseCase
	auth      AuthGate
	cfg       WebsocketConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	conns *ConnectionManager,
	messageUC *SendMessageUseCase,
	auth AuthGate,
	cfg WebsocketConfig,
) *ChatWebsocketHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &ChatWebsocketHandler{
		conns:     conns,
		messageUC: messageUC,
		auth:      auth,
		cfg:       cfg,
	}
}

// connState what the read loop knows about its peer
type connState struct {
	session     *domain.Session
	credentials string
	limiter     *rate.Limiter
}

func (h *ChatWebsocketHandler) newLimiter() *rate.Limiter {
	if h.cfg.SendRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.cfg.SendRate), burst)
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	st := &connState{
		session: h.conns.Connect(),
		limiter: h.newLimiter(),
	}
	s := st.session

	// 連線時帶入的 token (query auth / cookie auth_token)
	if creds, ok := conn.Locals(middlewares.TokenCredentials).(string); ok && creds != "" {
		if id, err := h.auth.Verify(ctx, creds); err == nil {
			_ = s.Authenticate(id.MemberID)
			st.credentials = creds
			h.keepAlive(ctx, s, creds)
		} else {
			logger.Log.Warn("websocket connect token rejected", zap.String("session_id", s.ID), zap.Error(err))
		}
	}

	writerDone := make(chan struct{})
	go h.writeLoop(conn, s, writerDone)

	defer func() {
		// 斷線一定要從所有房間移除
		h.conns.Disconnect(s)
		<-writerDone
		conn.Close()
		logger.Log.Info("websocket close", zap.String("session_id", s.ID))
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket close frame", zap.Int("code", code), zap.String("text", text))
		return nil
	})

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			// 檢查是否為 Close 正常結束
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived, //1005 c.WriteMessage(websocket.CloseMessage, []byte{})
			) {
				logger.Log.Debug("connection closed", zap.String("session_id", s.ID), zap.Error(err))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		if mt != websocket.TextMessage {
			h.sendError(s, "only text frames are supported")
			continue
		}
		h.textMessageAction(ctx, st, message)
	}
}

// keepAlive 連線或登入時延長 login session, 失敗不影響連線
func (h *ChatWebsocketHandler) keepAlive(ctx context.Context, s *domain.Session, creds string) {
	keeper, ok := h.auth.(SessionKeeper)
	if !ok {
		return
	}
	if err := keeper.Refresh(ctx, creds); err != nil {
		logger.Log.Warn("login session not extended", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// writeLoop 唯一寫入 conn 的 goroutine: outbound queue + ping
func (h *ChatWebsocketHandler) writeLoop(conn *websocket.Conn, s *domain.Session, done chan<- struct{}) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case payload, ok := <-s.Outbound():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Log.Warn("write message error", zap.String("session_id", s.ID), zap.Error(err))
				// read loop 會因此收到錯誤並執行 Disconnect
				conn.Close()
				h.drain(s)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				logger.Log.Warn("ping error", zap.String("session_id", s.ID), zap.Error(err))
				conn.Close()
				h.drain(s)
				return
			}
		}
	}
}

// drain discard queued events until the session closes
func (h *ChatWebsocketHandler) drain(s *domain.Session) {
	go func() {
		for range s.Outbound() {
		}
	}()
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, st *connState, msg []byte) {
	s := st.session

	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(s, "invalid json")
		return
	}

	req.RoomID = normalizeRoomID(req.RoomID)
	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	creds := st.credentials
	if req.Token != "" {
		creds = req.Token
	}

	var err error
	switch domain.Action(req.Action) {
	//登入: 之後的請求沿用此 token
	case domain.Authenticate:
		var id Identity
		id, err = h.auth.Verify(ctx, req.Token)
		if err != nil {
			err = errors.Join(domain.ErrUnauthorized, err)
			break
		}
		if err = s.Authenticate(id.MemberID); err == nil {
			st.credentials = req.Token
			resp.Payload["member_id"] = id.MemberID
			h.keepAlive(ctx, s, req.Token)
		}

	//進入聊天室
	case domain.JoinRoom:
		if err = h.conns.Join(s, req.RoomID); err == nil {
			resp.Payload["room_id"] = req.RoomID
			resp.Payload["online"] = h.conns.Online(req.RoomID)
		}

	//離開聊天室
	case domain.LeaveRoom:
		h.conns.Leave(s, req.RoomID)
		resp.Payload["room_id"] = req.RoomID

	//傳送資料
	//message都會寫入db,並傳訊給聊天室內的人
	case domain.SendMessage:
		if !st.limiter.Allow() {
			metrics.SendRejected.WithLabelValues("rate_limited").Inc()
			err = domain.ErrRateLimited
			break
		}
		var result *domain.SendResult
		result, err = h.messageUC.Execute(ctx, req.RoomID, req.Content, creds)
		if err == nil {
			resp.Payload["message_id"] = result.Message.ID
			resp.Payload["created_at"] = result.Message.CreatedAt
			resp.Payload["delivered"] = result.Delivered
			resp.Payload["latest_pointer_updated"] = result.LatestPointerUpdated()
		}

	//讀取訊息  將未讀訊息改為已讀
	case domain.ReadMessage:
		err = h.messageUC.MarkRead(ctx, req.RoomID, req.MessageID, creds)

	//歷史訊息
	case domain.ListMessages:
		var views []domain.MessageView
		views, err = h.messageUC.History(ctx, req.RoomID, creds)
		if err == nil {
			resp.Payload["room_id"] = req.RoomID
			resp.Payload["messages"] = views
		}

	default:
		h.sendError(s, "unknown action")
		return
	}

	if err != nil {
		resp.Error = err.Error()
		logger.Log.Warn("websocket action failed",
			zap.String("session_id", s.ID),
			zap.String("action", req.Action),
			zap.Error(err),
		)
	} else {
		resp.Success = true
	}
	h.sendResponse(s, resp)
}

// sendResponse - 發送 JSON 給前端 (經由 session queue)
func (h *ChatWebsocketHandler) sendResponse(s *domain.Session, resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("encode response failed", zap.String("action", resp.Action), zap.Error(err))
		return
	}
	if !s.Deliver(b) {
		logger.Log.Warn("response dropped", zap.String("session_id", s.ID), zap.String("action", resp.Action))
	}
}

func (h *ChatWebsocketHandler) sendError(s *domain.Session, errorMsg string) {
	h.sendResponse(s, domain.WSResponse{
		Action:  string(domain.NotifyError),
		Success: false,
		Error:   errorMsg,
	})
}
