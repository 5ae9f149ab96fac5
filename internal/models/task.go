package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Task is a unit of work inside exactly one project, assigned to at
// most one user.
type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string       `json:"title" gorm:"not null;size:300"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status" gorm:"not null;default:'todo';index"`
	Priority    TaskPriority `json:"priority" gorm:"not null;default:'medium';index"`

	ProjectID  uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	CreatorID  uuid.UUID  `json:"creator_id" gorm:"type:uuid;not null"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty" gorm:"type:uuid;index"`

	Project  *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Creator  *User    `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Assignee *User    `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`

	DueDate     *time.Time `json:"due_date,omitempty" gorm:"index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Tags           []string       `json:"tags,omitempty" gorm:"serializer:json"`
	CustomFields   map[string]any `json:"custom_fields,omitempty" gorm:"serializer:json"`
	EstimatedHours float64        `json:"estimated_hours"`

	// Recurrence; zero values mean a one-off task.
	IsRecurring         bool              `json:"is_recurring" gorm:"default:false;index"`
	RecurrencePattern   RecurrencePattern `json:"recurrence_pattern,omitempty"`
	RecurrenceFrequency int               `json:"recurrence_frequency,omitempty"`
	RecurrenceEnd       *time.Time        `json:"recurrence_end,omitempty"`
	LastRecurrence      *time.Time        `json:"last_recurrence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TimeEntries []TimeEntry `json:"time_entries,omitempty" gorm:"foreignKey:TaskID"`
}

func (t *Task) Overdue(asOf time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(asOf) && !t.Status.Terminal()
}

// TotalHours sums closed time entries loaded on the task.
func (t *Task) TotalHours() float64 {
	var total float64
	for _, entry := range t.TimeEntries {
		total += entry.DurationHours
	}
	return total
}

// HasTag reports whether the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}
