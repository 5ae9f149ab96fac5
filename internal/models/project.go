package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Project groups tasks and members. Projects are archived by clearing
// IsActive, never deleted.
type Project struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" gorm:"not null;size:200"`
	Description string    `json:"description"`
	ChannelID   string    `json:"channel_id" gorm:"index"`
	Color       string    `json:"color" gorm:"default:'#3498db'"`
	OwnerID     uuid.UUID `json:"owner_id" gorm:"type:uuid;not null"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []User           `json:"members,omitempty" gorm:"many2many:project_members;"`
	Tasks   []Task           `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
	Fields  []CustomFieldDef `json:"fields,omitempty" gorm:"foreignKey:ProjectID"`
}

func (p *Project) HasMember(userID uuid.UUID) bool {
	for _, m := range p.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// CustomFieldDef declares a per-project custom field that task values
// are validated against.
type CustomFieldDef struct {
	ID        uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null;size:100"`
	Type      FieldType `json:"type" gorm:"not null"`
	Options   []string  `json:"options,omitempty" gorm:"serializer:json"`
	Required  bool      `json:"required" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskTemplate captures defaults for creating similar tasks.
type TaskTemplate struct {
	ID                  uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID           uuid.UUID      `json:"project_id" gorm:"type:uuid;not null;index"`
	Name                string         `json:"name" gorm:"not null;size:200"`
	TitleTemplate       string         `json:"title_template" gorm:"not null;size:300"`
	DescriptionTemplate string         `json:"description_template"`
	DefaultPriority     TaskPriority   `json:"default_priority" gorm:"default:'medium'"`
	DefaultTags         []string       `json:"default_tags,omitempty" gorm:"serializer:json"`
	DefaultCustomFields map[string]any `json:"default_custom_fields,omitempty" gorm:"serializer:json"`
	EstimatedHours      float64        `json:"estimated_hours"`
	CreatedAt           time.Time      `json:"created_at"`
}
