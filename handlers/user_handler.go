package handlers

import (
	"errors"

	"github.com/davidem/duochat/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type UserHandler struct {
	Users storage.UserDirectory
}

func NewUserHandler(users storage.UserDirectory) *UserHandler {
	return &UserHandler{Users: users}
}

// GetPartner returns the other registered user. The system is two-party, so
// "partner" is simply any user that is not the caller.
func (h *UserHandler) GetPartner(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	partner, err := h.Users.GetPartner(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Partner not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(UserResponse{ID: partner.ID.String(), Username: partner.Username, PublicKey: partner.PublicKey})
}

// UpdateFCMToken registers the caller's push device token. This is the token
// the send flow's offline fallback reads.
func (h *UserHandler) UpdateFCMToken(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	type Request struct {
		FCMToken string `json:"fcmToken" validate:"required"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "FCM token is required"})
	}

	if err := h.Users.UpdateFCMToken(userID, req.FCMToken); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// currentUserID extracts the authenticated user id from the JWT the Protected
// middleware stored in locals.
func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("missing token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing user_id claim")
	}
	return uuid.Parse(raw)
}
