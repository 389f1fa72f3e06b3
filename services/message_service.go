package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/davidem/duochat/models"
	"github.com/davidem/duochat/notifications"
	"github.com/davidem/duochat/storage"
	"github.com/davidem/duochat/websocket"
	"github.com/google/uuid"
)

var (
	ErrPersistenceFailed = errors.New("message could not be persisted")
	ErrMessageNotFound   = errors.New("message not found")
)

const (
	pushTitle = "New message"
	pushBody  = "You have received a new message"
)

// PushTokenSource is the slice of the user directory the messaging service
// needs: the receiver's registered push device token, if any.
type PushTokenSource interface {
	GetPushToken(userID uuid.UUID) (string, bool)
}

// MessageService orchestrates the send, read-receipt and fetch flows. It is
// the sole writer of message delivery state; the store, hub and dispatcher
// are constructed once at startup and injected.
//
// "Receiver is reachable" is checked and then acted on non-atomically: the
// last handle can disconnect between the check and the route. The event is
// then dropped and the push fallback is not revisited. That is acceptable
// because live routing and push are latency optimizations only; a client
// that reconnects always reconciles through ListForUser, so no message is
// ever lost.
type MessageService struct {
	store storage.Store
	hub   *websocket.Hub
	users PushTokenSource
	push  notifications.Dispatcher
}

func NewMessageService(store storage.Store, hub *websocket.Hub, users PushTokenSource, push notifications.Dispatcher) *MessageService {
	return &MessageService{store: store, hub: hub, users: users, push: push}
}

// Send persists the message, then routes it to the receiver's live handles or
// falls back to a push notification. Persistence is the only step that can
// fail the operation: once the record is durable, routing and notification
// failures degrade silently and the send still succeeds.
func (s *MessageService) Send(senderID, receiverID uuid.UUID, encryptedContent string) (*models.Message, error) {
	msg := &models.Message{
		ID:               uuid.New(),
		SenderID:         senderID,
		ReceiverID:       receiverID,
		EncryptedContent: encryptedContent,
		Timestamp:        time.Now().UTC(),
	}

	if err := s.store.Insert(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	if s.hub.IsReachable(receiverID) {
		routed := s.hub.RouteTo(receiverID, websocket.NewMessageEvent(msg))
		if routed > 0 {
			s.markDelivered(msg)
		}
	} else if token, ok := s.users.GetPushToken(receiverID); ok {
		// The body never carries message content: the payload is encrypted
		// and the notification channel is not trusted with plaintext.
		if _, err := s.push.Send(token, pushTitle, pushBody); err != nil {
			log.Printf("🔥 Failed to send push notification to %s: %v", receiverID, err)
		}
	}

	// Confirmation echo: the sender already holds the plaintext locally, but
	// the echoed record carries the authoritative id and timestamp.
	s.hub.RouteTo(senderID, websocket.NewMessageEvent(msg))

	return msg, nil
}

// markDelivered records that the message reached at least one live handle.
// No finer-grained transport ack exists, so a successful route is the
// delivery signal.
func (s *MessageService) markDelivered(msg *models.Message) {
	delivered := true
	err := s.store.UpdateDeliveryState(msg.ID, storage.DeliveryUpdate{Delivered: &delivered})
	if err != nil {
		log.Printf("Failed to flag message %s as delivered: %v", msg.ID, err)
		return
	}
	msg.IsDelivered = true
}

// MarkRead flags the message as read and notifies the original sender over
// their live handles. Already-read messages are left untouched, so repeated
// calls keep the first readAt and emit no further receipts. Read receipts to
// an unreachable sender are dropped, not queued; the sender learns the read
// state from the record on next fetch.
func (s *MessageService) MarkRead(messageID uuid.UUID) error {
	msg, err := s.store.GetByID(messageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if msg.IsRead {
		log.Printf("Message %s already marked as read, skipping", messageID)
		return nil
	}

	read := true
	readAt := time.Now().UTC()
	err = s.store.UpdateDeliveryState(messageID, storage.DeliveryUpdate{Read: &read, ReadAt: &readAt})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	s.hub.RouteTo(msg.SenderID, websocket.NewReadEvent(messageID.String()))
	return nil
}

// ListForUser returns the full conversation view for a user, ascending by
// creation timestamp. This is the reconciliation path: it is the only way a
// message sent while its receiver was offline ever reaches that client.
func (s *MessageService) ListForUser(userID uuid.UUID) ([]models.Message, error) {
	messages, err := s.store.QueryByParticipant(userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}
