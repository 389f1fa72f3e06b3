package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davidem/duochat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrDuplicateUsername = errors.New("username already exists")

// UserDirectory is the user-profile collaborator surface. The messaging
// service only reads push tokens from it; the auth and user handlers own the
// rest.
type UserDirectory interface {
	Create(user *models.User) error
	GetByUsername(username string) (*models.User, error)
	GetByID(id uuid.UUID) (*models.User, error)
	// GetPartner returns the other registered user in this two-party system.
	GetPartner(currentID uuid.UUID) (*models.User, error)
	UpdateFCMToken(id uuid.UUID, token string) error
	GetPushToken(id uuid.UUID) (string, bool)
}

type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) Create(user *models.User) error {
	if err := d.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (d *GormUserDirectory) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &user, nil
}

func (d *GormUserDirectory) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &user, nil
}

func (d *GormUserDirectory) GetPartner(currentID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := d.db.Where("id <> ?", currentID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &user, nil
}

func (d *GormUserDirectory) UpdateFCMToken(id uuid.UUID, token string) error {
	result := d.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"fcm_token": token, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *GormUserDirectory) GetPushToken(id uuid.UUID) (string, bool) {
	user, err := d.GetByID(id)
	if err != nil || user.FCMToken == nil || *user.FCMToken == "" {
		return "", false
	}
	return *user.FCMToken, true
}

// MemoryUserDirectory backs the development mode alongside MemoryStore.
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{users: make(map[uuid.UUID]*models.User)}
}

func (d *MemoryUserDirectory) Create(user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	stored := *user
	d.users[user.ID] = &stored
	return nil
}

func (d *MemoryUserDirectory) GetByUsername(username string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, stored := range d.users {
		if stored.Username == username {
			user := *stored
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryUserDirectory) GetByID(id uuid.UUID) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stored, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	user := *stored
	return &user, nil
}

func (d *MemoryUserDirectory) GetPartner(currentID uuid.UUID) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for id, stored := range d.users {
		if id != currentID {
			user := *stored
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryUserDirectory) UpdateFCMToken(id uuid.UUID, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	stored.FCMToken = &token
	stored.UpdatedAt = time.Now()
	return nil
}

func (d *MemoryUserDirectory) GetPushToken(id uuid.UUID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stored, ok := d.users[id]
	if !ok || stored.FCMToken == nil || *stored.FCMToken == "" {
		return "", false
	}
	return *stored.FCMToken, true
}
