package routes

import (
	"github.com/davidem/duochat/handlers"
	"github.com/davidem/duochat/middleware"
	"github.com/gofiber/fiber/v2"
)

func UserRoutes(app *fiber.App, h *handlers.UserHandler) {
	api := app.Group("/api")

	users := api.Group("/users", middleware.Protected())
	users.Get("/partner", h.GetPartner)
	users.Post("/fcm-token", h.UpdateFCMToken)
}
