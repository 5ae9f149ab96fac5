package services

import (
	"time"

	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TimeReportFilter struct {
	UserID *uuid.UUID
	TaskID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

type TimeReport struct {
	Entries    []models.TimeEntry `json:"entries"`
	TotalHours float64            `json:"total_hours"`
}

type TimerService interface {
	Start(db *gorm.DB, userID, taskID uuid.UUID) (*models.TimeEntry, error)
	Stop(db *gorm.DB, userID, taskID uuid.UUID, note string) (*models.TimeEntry, error)
	Active(db *gorm.DB, userID uuid.UUID) ([]models.TimeEntry, error)
	Log(db *gorm.DB, userID, taskID uuid.UUID, hours float64, note string) (*models.TimeEntry, error)
	Report(db *gorm.DB, filter TimeReportFilter) (*TimeReport, error)
	CloseStale(db *gorm.DB, olderThan time.Duration, now time.Time) ([]models.TimeEntry, error)
}

type TimerServiceImpl struct {
	events Sink
}

func NewTimerService(events Sink) *TimerServiceImpl {
	return &TimerServiceImpl{events: events}
}

// Start opens a running time entry. At most one running entry may exist
// per (user, task); a second start reports Conflict.
func (s *TimerServiceImpl) Start(db *gorm.DB, userID, taskID uuid.UUID) (*models.TimeEntry, error) {
	var entry *models.TimeEntry

	err := db.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Where("id = ?", taskID).First(&task).Error; err != nil {
			return wrapNotFound(err, "task %s", taskID)
		}

		var running int64
		err := tx.Model(&models.TimeEntry{}).
			Where("user_id = ? AND task_id = ? AND end_time IS NULL", userID, taskID).
			Count(&running).Error
		if err != nil {
			return err
		}
		if running > 0 {
			return conflictErr("a timer is already running for task %s", taskID)
		}

		entry = &models.TimeEntry{
			ID:        uuid.Must(uuid.NewV4()),
			TaskID:    taskID,
			UserID:    userID,
			StartTime: time.Now(),
			CreatedAt: time.Now(),
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTimerStarted, Entry: entry, Actor: userID})
	return entry, nil
}

// Stop closes the running entry for (user, task) and computes its
// duration. NotFound if no timer is running.
func (s *TimerServiceImpl) Stop(db *gorm.DB, userID, taskID uuid.UUID, note string) (*models.TimeEntry, error) {
	var entry models.TimeEntry

	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("user_id = ? AND task_id = ? AND end_time IS NULL", userID, taskID).
			First(&entry).Error
		if err != nil {
			return wrapNotFound(err, "running timer for task %s", taskID)
		}

		end := time.Now()
		if end.Before(entry.StartTime) {
			end = entry.StartTime
		}
		entry.EndTime = &end
		entry.DurationHours = end.Sub(entry.StartTime).Hours()
		if note != "" {
			entry.Note = note
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTimerStopped, Entry: &entry, Actor: userID})
	return &entry, nil
}

func (s *TimerServiceImpl) Active(db *gorm.DB, userID uuid.UUID) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := db.
		Preload("Task").
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time ASC").
		Find(&entries).Error
	return entries, err
}

// Log records a closed entry directly, for work that was not tracked
// with a live timer.
func (s *TimerServiceImpl) Log(db *gorm.DB, userID, taskID uuid.UUID, hours float64, note string) (*models.TimeEntry, error) {
	if hours <= 0 {
		return nil, validationErr("logged hours must be positive")
	}

	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		return nil, wrapNotFound(err, "task %s", taskID)
	}

	end := time.Now()
	start := end.Add(-time.Duration(hours * float64(time.Hour)))
	entry := models.TimeEntry{
		ID:            uuid.Must(uuid.NewV4()),
		TaskID:        taskID,
		UserID:        userID,
		StartTime:     start,
		EndTime:       &end,
		DurationHours: hours,
		Note:          note,
		CreatedAt:     end,
	}
	if err := db.Create(&entry).Error; err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTimerStopped, Entry: &entry, Actor: userID})
	return &entry, nil
}

func (s *TimerServiceImpl) Report(db *gorm.DB, filter TimeReportFilter) (*TimeReport, error) {
	query := db.Preload("Task").Preload("User").Where("end_time IS NOT NULL")

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.From != nil {
		query = query.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("start_time < ?", *filter.To)
	}

	var entries []models.TimeEntry
	if err := query.Order("start_time ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	report := &TimeReport{Entries: entries}
	for _, entry := range entries {
		report.TotalHours += entry.DurationHours
	}
	return report, nil
}

// CloseStale force-stops running timers older than the cutoff, for the
// maintenance job that cleans up forgotten timers.
func (s *TimerServiceImpl) CloseStale(db *gorm.DB, olderThan time.Duration, now time.Time) ([]models.TimeEntry, error) {
	cutoff := now.Add(-olderThan)

	var stale []models.TimeEntry
	err := db.
		Where("end_time IS NULL AND start_time < ?", cutoff).
		Find(&stale).Error
	if err != nil {
		return nil, err
	}

	for i := range stale {
		entry := &stale[i]
		entry.EndTime = &now
		entry.DurationHours = now.Sub(entry.StartTime).Hours()
		entry.Note = "auto-closed stale timer"
		if err := db.Save(entry).Error; err != nil {
			return nil, err
		}
		publish(s.events, Event{Type: EventTimerStopped, Entry: entry, Actor: entry.UserID})
	}
	return stale, nil
}
