package handlers

import (
	"log"

	"github.com/davidem/duochat/models"
	"github.com/davidem/duochat/services"
	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	Messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{Messages: messages}
}

// GetMessages returns the caller's full conversation view, ascending by
// timestamp. A reconnecting client calls this to pick up everything it missed
// while offline.
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	messages, err := h.Messages.ListForUser(userID)
	if err != nil {
		log.Printf("Failed to fetch messages for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	if messages == nil {
		messages = []models.Message{}
	}

	return c.JSON(messages)
}
