package router

import (
	"context"

	"chat_relay_service/internal/chat/app"
	"chat_relay_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相关的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chat *app.ChatHandler) {
	optional := middlewares.JWTMiddleware(false)
	required := middlewares.JWTMiddleware(true)

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	// token 可在連線時帶入, 也可之後用 authenticate action 提供
	r.Get("/ws", optional, websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	rooms := r.Group("/rooms")
	rooms.Post("/", optional, chat.CreateRoom)
	rooms.Get("/:id", chat.GetRoom)
	rooms.Patch("/:id", required, chat.RenameRoom)
	rooms.Post("/:id/members", required, chat.JoinRoom)
	rooms.Delete("/:id/members", required, chat.ExitRoom)

	messages := r.Group("/messages", required)
	messages.Get("/:roomId", chat.ListMessages)
	messages.Post("/", chat.SendMessage)
	messages.Post("/:roomId/:messageId/read", chat.MarkRead)
}
