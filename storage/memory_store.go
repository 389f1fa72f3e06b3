package storage

import (
	"sync"

	"github.com/davidem/duochat/models"
	"github.com/google/uuid"
)

// MemoryStore is the volatile development backend. It holds records for the
// process lifetime only and mirrors the Postgres backend's contract exactly,
// including duplicate-id and flag-monotonicity enforcement.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[uuid.UUID]*models.Message)}
}

func (s *MemoryStore) Insert(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.messages[msg.ID]; exists {
		return ErrDuplicateID
	}
	stored := *msg
	s.messages[msg.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByID(id uuid.UUID) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	msg := *stored
	return &msg, nil
}

func (s *MemoryStore) UpdateDeliveryState(id uuid.UUID, upd DeliveryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}

	norm, err := normalize(stored, upd)
	if err != nil {
		return err
	}
	if norm.Delivered != nil {
		stored.IsDelivered = true
	}
	if norm.Read != nil {
		stored.IsRead = true
		if norm.ReadAt != nil {
			readAt := *norm.ReadAt
			stored.ReadAt = &readAt
		}
	}
	return nil
}

func (s *MemoryStore) QueryByParticipant(userID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []models.Message
	for _, stored := range s.messages {
		if stored.SenderID == userID || stored.ReceiverID == userID {
			messages = append(messages, *stored)
		}
	}
	return messages, nil
}
