package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// TimeEntry records an interval of work against a task. A nil EndTime
// marks a running timer; the timer service enforces at most one running
// entry per (user, task).
type TimeEntry struct {
	ID            uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	TaskID        uuid.UUID  `json:"task_id" gorm:"type:uuid;not null;index:idx_entry_user_task"`
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_entry_user_task"`
	StartTime     time.Time  `json:"start_time" gorm:"not null"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DurationHours float64    `json:"duration_hours"`
	Note          string     `json:"note" gorm:"size:500"`
	CreatedAt     time.Time  `json:"created_at"`

	Task *Task `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (e *TimeEntry) Running() bool {
	return e.EndTime == nil
}

// Elapsed returns the entry duration, using now for running entries.
func (e *TimeEntry) Elapsed(now time.Time) time.Duration {
	if e.EndTime != nil {
		return e.EndTime.Sub(e.StartTime)
	}
	return now.Sub(e.StartTime)
}
