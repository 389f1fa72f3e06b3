package storage

import (
	"errors"
	"time"

	"github.com/davidem/duochat/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateID       = errors.New("duplicate message id")
	ErrInvalidTransition = errors.New("delivery flags cannot be reset")
	ErrUnavailable       = errors.New("storage unavailable")
)

// DeliveryUpdate is a partial update of a message's mutable fields. Nil
// pointers mean "leave unchanged". ReadAt is only applied together with Read.
type DeliveryUpdate struct {
	Delivered *bool
	Read      *bool
	ReadAt    *time.Time
}

// Store is the message store contract. The durable Postgres backend and the
// volatile development backend satisfy it with identical semantics, so the
// messaging service works against either unchanged.
type Store interface {
	Insert(msg *models.Message) error
	GetByID(id uuid.UUID) (*models.Message, error)
	UpdateDeliveryState(id uuid.UUID, upd DeliveryUpdate) error
	QueryByParticipant(userID uuid.UUID) ([]models.Message, error)
}

// normalize validates upd against the current record and returns only the
// fields that actually change. Regressing a true flag to false is rejected;
// re-setting an already-true flag collapses to a no-op so callers can retry
// safely.
func normalize(msg *models.Message, upd DeliveryUpdate) (DeliveryUpdate, error) {
	var norm DeliveryUpdate
	if upd.Delivered != nil {
		if !*upd.Delivered && msg.IsDelivered {
			return norm, ErrInvalidTransition
		}
		if *upd.Delivered && !msg.IsDelivered {
			norm.Delivered = upd.Delivered
		}
	}
	if upd.Read != nil {
		if !*upd.Read && msg.IsRead {
			return norm, ErrInvalidTransition
		}
		if *upd.Read && !msg.IsRead {
			norm.Read = upd.Read
			norm.ReadAt = upd.ReadAt
		}
	}
	return norm, nil
}

func (u DeliveryUpdate) empty() bool {
	return u.Delivered == nil && u.Read == nil
}

func (u DeliveryUpdate) columns() map[string]interface{} {
	changes := map[string]interface{}{}
	if u.Delivered != nil {
		changes["is_delivered"] = true
	}
	if u.Read != nil {
		changes["is_read"] = true
		if u.ReadAt != nil {
			changes["read_at"] = *u.ReadAt
		}
	}
	return changes
}
