package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is the durable record of a single exchange. Sender, receiver,
// content and timestamp never change after insert; only the delivery flags
// and ReadAt may move, and only forward.
type Message struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	SenderID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"senderId"`
	ReceiverID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"receiverId"`
	EncryptedContent string     `gorm:"type:text;not null" json:"encryptedContent"`
	Timestamp        time.Time  `gorm:"not null" json:"timestamp"`
	IsDelivered      bool       `gorm:"not null;default:false" json:"isDelivered"`
	IsRead           bool       `gorm:"not null;default:false" json:"isRead"`
	ReadAt           *time.Time `json:"readAt,omitempty"`
}
