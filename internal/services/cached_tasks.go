package services

import (
	"fmt"
	"time"

	"github.com/taskhive/taskhive/internal/cache"
	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	taskTTL    = 30 * time.Minute
	overdueTTL = 5 * time.Minute
)

// CachedTaskService fronts a TaskService with the multi-level cache.
// Single-task reads and the overdue listing are cached; every mutation
// invalidates the affected project's keys.
type CachedTaskService struct {
	inner TaskService
	cache *cache.MultiLevelCache
}

func NewCachedTaskService(inner TaskService, cacheInstance *cache.MultiLevelCache) *CachedTaskService {
	return &CachedTaskService{inner: inner, cache: cacheInstance}
}

func taskKey(id uuid.UUID) string {
	return fmt.Sprintf("task:%s", id)
}

func projectTasksPattern(projectID uuid.UUID) string {
	return fmt.Sprintf("project_tasks:%s:*", projectID)
}

func (s *CachedTaskService) invalidate(task *models.Task) {
	if task == nil {
		return
	}
	s.cache.Delete(taskKey(task.ID))
	s.cache.DeletePattern(projectTasksPattern(task.ProjectID))
	s.cache.Delete("overdue_tasks")
}

func (s *CachedTaskService) Create(db *gorm.DB, input CreateTaskInput) (*models.Task, error) {
	task, err := s.inner.Create(db, input)
	if err != nil {
		return nil, err
	}
	s.cache.Set(taskKey(task.ID), task, taskTTL)
	s.cache.DeletePattern(projectTasksPattern(task.ProjectID))
	s.cache.Delete("overdue_tasks")
	return task, nil
}

func (s *CachedTaskService) Get(db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	var cached models.Task
	if err := s.cache.Get(taskKey(id), &cached); err == nil {
		return &cached, nil
	}

	task, err := s.inner.Get(db, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(taskKey(id), task, taskTTL)
	return task, nil
}

func (s *CachedTaskService) Update(db *gorm.DB, actorID, id uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.inner.Update(db, actorID, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	s.cache.Set(taskKey(task.ID), task, taskTTL)
	return task, nil
}

func (s *CachedTaskService) Delete(db *gorm.DB, actorID, id uuid.UUID) error {
	task, getErr := s.inner.Get(db, id)

	if err := s.inner.Delete(db, actorID, id); err != nil {
		return err
	}
	if getErr == nil {
		s.invalidate(task)
	} else {
		s.cache.Delete(taskKey(id))
	}
	return nil
}

// List caches per-project listings only; ad-hoc cross-project filters
// go straight to the database.
func (s *CachedTaskService) List(db *gorm.DB, filter TaskFilter) ([]models.Task, error) {
	if filter.ProjectID == nil || filter.Status != nil || filter.AssigneeID != nil ||
		filter.Priority != nil || filter.Tag != "" {
		return s.inner.List(db, filter)
	}

	key := fmt.Sprintf("project_tasks:%s:%s:%s:%d",
		*filter.ProjectID, filter.SortBy, filter.Order, filter.Limit)

	var cached []models.Task
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.inner.List(db, filter)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, tasks, overdueTTL)
	return tasks, nil
}

func (s *CachedTaskService) Search(db *gorm.DB, query string, filter TaskFilter) ([]models.Task, error) {
	return s.inner.Search(db, query, filter)
}

func (s *CachedTaskService) Overdue(db *gorm.DB, asOf time.Time) ([]models.Task, error) {
	// Only the "now" view is worth caching.
	if time.Since(asOf).Abs() > time.Minute {
		return s.inner.Overdue(db, asOf)
	}

	var cached []models.Task
	if err := s.cache.Get("overdue_tasks", &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.inner.Overdue(db, asOf)
	if err != nil {
		return nil, err
	}
	s.cache.Set("overdue_tasks", tasks, overdueTTL)
	return tasks, nil
}

func (s *CachedTaskService) DueBetween(db *gorm.DB, from, to time.Time, includeNoDueDate bool) ([]models.Task, error) {
	return s.inner.DueBetween(db, from, to, includeNoDueDate)
}

func (s *CachedTaskService) Assign(db *gorm.DB, actorID, taskID uuid.UUID, assigneeID *uuid.UUID) (*models.Task, error) {
	task, err := s.inner.Assign(db, actorID, taskID, assigneeID)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	s.cache.Set(taskKey(task.ID), task, taskTTL)
	return task, nil
}

func (s *CachedTaskService) CreateFromTemplate(db *gorm.DB, actorID, templateID uuid.UUID, overrides CreateTaskInput) (*models.Task, error) {
	task, err := s.inner.CreateFromTemplate(db, actorID, templateID, overrides)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	return task, nil
}

func (s *CachedTaskService) CreateRecurring(db *gorm.DB, input CreateTaskInput, rule RecurrenceRule) (*models.Task, error) {
	task, err := s.inner.CreateRecurring(db, input, rule)
	if err != nil {
		return nil, err
	}
	s.invalidate(task)
	return task, nil
}

func (s *CachedTaskService) ProcessRecurring(db *gorm.DB, now time.Time) ([]models.Task, error) {
	created, err := s.inner.ProcessRecurring(db, now)
	if err != nil {
		return nil, err
	}
	for i := range created {
		s.invalidate(&created[i])
	}
	return created, nil
}
