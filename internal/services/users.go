package services

import (
	"time"

	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	GetOrCreate(db *gorm.DB, chatID, username, displayName, avatarURL string) (*models.User, error)
	ByChatID(db *gorm.DB, chatID string) (*models.User, error)
	ByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	Search(db *gorm.DB, query string) ([]models.User, error)
	SetTimezone(db *gorm.DB, id uuid.UUID, timezone string) error
	Deactivate(db *gorm.DB, id uuid.UUID) error
}

type UserServiceImpl struct {
	defaultTimezone string
}

func NewUserService(defaultTimezone string) *UserServiceImpl {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &UserServiceImpl{defaultTimezone: defaultTimezone}
}

// GetOrCreate looks a user up by chat-platform ID and creates one on
// first interaction. Display fields are refreshed on every call so
// renamed chat accounts stay current.
func (s *UserServiceImpl) GetOrCreate(db *gorm.DB, chatID, username, displayName, avatarURL string) (*models.User, error) {
	if chatID == "" {
		return nil, validationErr("chat id is required")
	}

	var user models.User
	err := db.Where("chat_id = ?", chatID).First(&user).Error
	if err == nil {
		changed := false
		if username != "" && user.Username != username {
			user.Username = username
			changed = true
		}
		if displayName != "" && user.DisplayName != displayName {
			user.DisplayName = displayName
			changed = true
		}
		if avatarURL != "" && user.AvatarURL != avatarURL {
			user.AvatarURL = avatarURL
			changed = true
		}
		if changed {
			if err := db.Save(&user).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	user = models.User{
		ID:          uuid.Must(uuid.NewV4()),
		ChatID:      chatID,
		Username:    username,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Timezone:    s.defaultTimezone,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserServiceImpl) ByChatID(db *gorm.DB, chatID string) (*models.User, error) {
	var user models.User
	if err := db.Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, wrapNotFound(err, "user %s", chatID)
	}
	return &user, nil
}

func (s *UserServiceImpl) ByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrapNotFound(err, "user %s", id)
	}
	return &user, nil
}

func (s *UserServiceImpl) Search(db *gorm.DB, query string) ([]models.User, error) {
	var users []models.User
	pattern := "%" + query + "%"
	err := db.
		Where("is_active = ?", true).
		Where("username LIKE ? OR display_name LIKE ?", pattern, pattern).
		Find(&users).Error
	return users, err
}

func (s *UserServiceImpl) SetTimezone(db *gorm.DB, id uuid.UUID, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil {
		return validationErr("unknown timezone %q", timezone)
	}
	result := db.Model(&models.User{}).Where("id = ?", id).Update("timezone", timezone)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr("user %s", id)
	}
	return nil
}

// Deactivate marks a user inactive. Users are never hard-deleted; their
// tasks and time entries keep their history.
func (s *UserServiceImpl) Deactivate(db *gorm.DB, id uuid.UUID) error {
	result := db.Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr("user %s", id)
	}
	return nil
}
