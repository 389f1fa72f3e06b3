package handlers

import (
	"errors"
	"fmt"
	"log"

	"github.com/davidem/duochat/services"
	"github.com/davidem/duochat/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// WSHandler is the connection gateway: it authenticates an inbound websocket,
// binds it into the presence hub under the user's identity and then feeds
// send_message / mark_read events into the messaging service. The unbind is
// deferred before the event loop starts so it runs on every close path,
// clean or not.
type WSHandler struct {
	Messages  *services.MessageService
	Hub       *websocket.Hub
	JWTSecret string
}

func NewWSHandler(messages *services.MessageService, hub *websocket.Hub, jwtSecret string) *WSHandler {
	return &WSHandler{Messages: messages, Hub: hub, JWTSecret: jwtSecret}
}

type inboundEvent struct {
	Type             string `json:"type"`
	Token            string `json:"token,omitempty"`
	ReceiverID       string `json:"receiverId,omitempty"`
	EncryptedContent string `json:"encryptedContent,omitempty"`
	MessageID        string `json:"messageId,omitempty"`
}

func (h *WSHandler) ServeWs(c *websocketcontrib.Conn) {
	// First frame must authenticate. Nothing touches the hub before the token
	// verifies.
	var authMsg inboundEvent
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("WebSocket auth failed: invalid or missing auth message: %v", err)
		_ = c.WriteJSON(websocket.NewErrorEvent("Invalid or missing auth message"))
		c.Close()
		return
	}

	claims, err := h.parseToken(authMsg.Token)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid token: %v", err)
		_ = c.WriteJSON(websocket.NewErrorEvent("Invalid token"))
		c.Close()
		return
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		log.Printf("WebSocket auth failed: invalid user_id claim %q: %v", rawID, err)
		_ = c.WriteJSON(websocket.NewErrorEvent("Invalid user ID"))
		c.Close()
		return
	}

	log.Printf("WebSocket client authenticated: %s", userID)
	h.Hub.Bind(userID, c)
	defer func() {
		h.Hub.Unbind(userID, c)
		c.Close()
	}()

	for {
		var event inboundEvent
		if err := c.ReadJSON(&event); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", userID, err)
			} else {
				log.Printf("WebSocket read error for client %s: %v", userID, err)
			}
			break
		}

		switch event.Type {
		case "send_message":
			h.handleSend(c, userID, event)
		case "mark_read":
			h.handleMarkRead(userID, event)
		default:
			_ = c.WriteJSON(websocket.NewErrorEvent("Unknown event type"))
		}
	}
}

func (h *WSHandler) handleSend(c *websocketcontrib.Conn, senderID uuid.UUID, event inboundEvent) {
	receiverID, err := uuid.Parse(event.ReceiverID)
	if err != nil {
		log.Printf("Invalid receiver ID from client %s: %v", senderID, err)
		_ = c.WriteJSON(websocket.NewErrorEvent("Invalid receiver ID"))
		return
	}

	if _, err := h.Messages.Send(senderID, receiverID, event.EncryptedContent); err != nil {
		log.Printf("Failed to send message from client %s: %v", senderID, err)
		_ = c.WriteJSON(websocket.NewErrorEvent("Failed to send message"))
	}
}

func (h *WSHandler) handleMarkRead(userID uuid.UUID, event inboundEvent) {
	messageID, err := uuid.Parse(event.MessageID)
	if err != nil {
		log.Printf("Invalid message ID from client %s: %v", userID, err)
		return
	}

	if err := h.Messages.MarkRead(messageID); err != nil {
		log.Printf("Failed to mark message %s as read: %v", messageID, err)
	}
}

func (h *WSHandler) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
