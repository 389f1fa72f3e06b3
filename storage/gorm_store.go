package storage

import (
	"errors"
	"fmt"

	"github.com/davidem/duochat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the durable Postgres-backed message store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(msg *models.Message) error {
	if err := s.db.Create(msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *GormStore) GetByID(id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := s.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &msg, nil
}

// UpdateDeliveryState merges the partial update under a row lock so that
// concurrent delivered/read updates cannot overwrite each other's flags.
func (s *GormStore) UpdateDeliveryState(id uuid.UUID, upd DeliveryUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var msg models.Message
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&msg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		norm, err := normalize(&msg, upd)
		if err != nil {
			return err
		}
		if norm.empty() {
			return nil
		}

		if err := tx.Model(&models.Message{}).
			Where("id = ?", id).
			Updates(norm.columns()).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	})
}

func (s *GormStore) QueryByParticipant(userID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	if err := s.db.
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return messages, nil
}
