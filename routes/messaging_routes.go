package routes

import (
	"github.com/davidem/duochat/handlers"
	"github.com/davidem/duochat/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MessagingRoutes(app *fiber.App, messages *handlers.MessageHandler, ws *handlers.WSHandler) {
	api := app.Group("/api")

	api.Get("/messages", middleware.Protected(), messages.GetMessages)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(ws.ServeWs))
}
