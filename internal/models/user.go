package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// User is created on a chat member's first interaction with the bot and
// is deactivated rather than hard-deleted.
type User struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ChatID      string    `json:"chat_id" gorm:"uniqueIndex;not null"`
	Username    string    `json:"username" gorm:"not null"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Timezone    string    `json:"timezone" gorm:"default:'UTC'"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`

	// HTTP API credentials; empty for users known only through chat.
	Email    string `json:"email,omitempty" gorm:"index"`
	Password string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Projects    []Project   `json:"projects,omitempty" gorm:"many2many:project_members;"`
	TimeEntries []TimeEntry `json:"time_entries,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Token stores an HTTP refresh token issued at login.
type Token struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	RefreshToken uuid.UUID `json:"refresh_token" gorm:"type:uuid;uniqueIndex"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
