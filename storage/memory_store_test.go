package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/davidem/duochat/models"
	"github.com/google/uuid"
)

func newTestMessage(sender, receiver uuid.UUID) *models.Message {
	return &models.Message{
		ID:               uuid.New(),
		SenderID:         sender,
		ReceiverID:       receiver,
		EncryptedContent: "ZW5jcnlwdGVkIGJsb2I=",
		Timestamp:        time.Now().UTC(),
	}
}

func TestInsertAndGetByID(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())

	if err := store.Insert(msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(msg.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ID != msg.ID || got.SenderID != msg.SenderID || got.ReceiverID != msg.ReceiverID {
		t.Errorf("stored record does not match inserted record: got %+v", got)
	}
	if got.EncryptedContent != msg.EncryptedContent {
		t.Errorf("content changed across insert/get: got %q", got.EncryptedContent)
	}
	if got.IsDelivered || got.IsRead || got.ReadAt != nil {
		t.Errorf("fresh record must have delivery flags unset: %+v", got)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())

	if err := store.Insert(msg); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(msg); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID on second insert, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetByID(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDeliveryStateMarksDelivered(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())
	if err := store.Insert(msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	delivered := true
	if err := store.UpdateDeliveryState(msg.ID, DeliveryUpdate{Delivered: &delivered}); err != nil {
		t.Fatalf("UpdateDeliveryState failed: %v", err)
	}

	got, _ := store.GetByID(msg.ID)
	if !got.IsDelivered {
		t.Error("IsDelivered not set")
	}
	if got.IsRead {
		t.Error("IsRead must be untouched by a delivered-only update")
	}
}

func TestUpdateDeliveryStateRejectsRegression(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())
	if err := store.Insert(msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	read := true
	readAt := time.Now().UTC()
	if err := store.UpdateDeliveryState(msg.ID, DeliveryUpdate{Read: &read, ReadAt: &readAt}); err != nil {
		t.Fatalf("UpdateDeliveryState failed: %v", err)
	}

	regress := false
	err := store.UpdateDeliveryState(msg.ID, DeliveryUpdate{Read: &regress})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// The rejected call must leave the record unchanged.
	got, _ := store.GetByID(msg.ID)
	if !got.IsRead {
		t.Error("IsRead was reset by a rejected regression")
	}
	if got.ReadAt == nil || !got.ReadAt.Equal(readAt) {
		t.Errorf("ReadAt changed after rejected regression: %v", got.ReadAt)
	}
}

func TestUpdateDeliveryStateIdempotentReRead(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())
	if err := store.Insert(msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	read := true
	first := time.Now().UTC()
	if err := store.UpdateDeliveryState(msg.ID, DeliveryUpdate{Read: &read, ReadAt: &first}); err != nil {
		t.Fatalf("first read update failed: %v", err)
	}

	second := first.Add(time.Hour)
	if err := store.UpdateDeliveryState(msg.ID, DeliveryUpdate{Read: &read, ReadAt: &second}); err != nil {
		t.Fatalf("repeated read update must be a no-op, got %v", err)
	}

	got, _ := store.GetByID(msg.ID)
	if got.ReadAt == nil || !got.ReadAt.Equal(first) {
		t.Errorf("ReadAt must keep its first value, got %v", got.ReadAt)
	}
}

func TestUpdateDeliveryStateFalseOnFalseIsNoop(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())
	if err := store.Insert(msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Setting an already-false flag to false is not a regression.
	delivered := false
	if err := store.UpdateDeliveryState(msg.ID, DeliveryUpdate{Delivered: &delivered}); err != nil {
		t.Errorf("false-on-false update must succeed as a no-op, got %v", err)
	}
}

func TestUpdateDeliveryStateNotFound(t *testing.T) {
	store := NewMemoryStore()
	delivered := true
	err := store.UpdateDeliveryState(uuid.New(), DeliveryUpdate{Delivered: &delivered})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryByParticipant(t *testing.T) {
	store := NewMemoryStore()
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	sent := newTestMessage(alice, bob)
	received := newTestMessage(bob, alice)
	unrelated := newTestMessage(bob, carol)
	for _, msg := range []*models.Message{sent, received, unrelated} {
		if err := store.Insert(msg); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	messages, err := store.QueryByParticipant(alice)
	if err != nil {
		t.Fatalf("QueryByParticipant failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages for alice, got %d", len(messages))
	}
	for _, msg := range messages {
		if msg.SenderID != alice && msg.ReceiverID != alice {
			t.Errorf("query returned a message alice is not part of: %+v", msg)
		}
	}
}

func TestGetByIDReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	msg := newTestMessage(uuid.New(), uuid.New())
	if err := store.Insert(msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(msg.ID)
	got.IsRead = true

	again, _ := store.GetByID(msg.ID)
	if again.IsRead {
		t.Error("mutating a returned record must not affect the stored one")
	}
}
