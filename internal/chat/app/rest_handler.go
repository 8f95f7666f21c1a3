package app

import (
	"errors"

	"chat_relay_service/internal/chat/domain"
	"chat_relay_service/pkg/logger"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHandler REST surface of rooms and messages
type ChatHandler struct {
	roomUC    *RoomUseCase
	messageUC *SendMessageUseCase
}

// NewChatHandler create ChatHandler
func NewChatHandler(roomUC *RoomUseCase, messageUC *SendMessageUseCase) *ChatHandler {
	return &ChatHandler{roomUC: roomUC, messageUC: messageUC}
}

// errorStatus map domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrMessageNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func replyError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		logger.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// CreateRoom POST /rooms
func (h *ChatHandler) CreateRoom(c *fiber.Ctx) error {
	var req domain.CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	room, err := h.roomUC.Create(c.UserContext(), req.Name, middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// RenameRoom PATCH /rooms/:id
func (h *ChatHandler) RenameRoom(c *fiber.Ctx) error {
	var req domain.CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	room, err := h.roomUC.Rename(c.UserContext(), c.Params("id"), req.Name, middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(room)
}

// GetRoom GET /rooms/:id
func (h *ChatHandler) GetRoom(c *fiber.Ctx) error {
	room, err := h.roomUC.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(room)
}

// JoinRoom POST /rooms/:id/members
func (h *ChatHandler) JoinRoom(c *fiber.Ctx) error {
	room, err := h.roomUC.AddMember(c.UserContext(), c.Params("id"), middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(room)
}

// ExitRoom DELETE /rooms/:id/members
func (h *ChatHandler) ExitRoom(c *fiber.Ctx) error {
	room, err := h.roomUC.RemoveMember(c.UserContext(), c.Params("id"), middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(room)
}

// ListMessages GET /messages/:roomId
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	views, err := h.messageUC.History(c.UserContext(), c.Params("roomId"), middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(views)
}

// SendMessage POST /messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req domain.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(req); err != nil {
		return replyError(c, err)
	}

	result, err := h.messageUC.Execute(c.UserContext(), req.RoomID, req.Content, middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":                result.Message,
		"delivered":              result.Delivered,
		"latest_pointer_updated": result.LatestPointerUpdated(),
	})
}

// MarkRead POST /messages/:roomId/:messageId/read
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	err := h.messageUC.MarkRead(c.UserContext(), c.Params("roomId"), c.Params("messageId"), middlewares.Credentials(c))
	if err != nil {
		return replyError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
