package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskhive/taskhive/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type CreateTaskInput struct {
	ProjectID      uuid.UUID
	CreatorID      uuid.UUID
	Title          string
	Description    string
	Priority       models.TaskPriority
	AssigneeID     *uuid.UUID
	DueDate        *time.Time
	Tags           []string
	CustomFields   map[string]any
	EstimatedHours float64
}

// RecurrenceRule configures a recurring task: every Frequency
// days/weeks/months, optionally until End.
type RecurrenceRule struct {
	Pattern   models.RecurrencePattern
	Frequency int
	End       *time.Time
}

// TaskPatch updates only the fields whose pointers are set.
// ClearDueDate removes an existing due date.
type TaskPatch struct {
	Title          *string
	Description    *string
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	DueDate        *time.Time
	ClearDueDate   bool
	Tags           *[]string
	CustomFields   map[string]any
	EstimatedHours *float64
}

type TaskFilter struct {
	ProjectID  *uuid.UUID
	Status     *models.TaskStatus
	AssigneeID *uuid.UUID
	Priority   *models.TaskPriority
	Tag        string
	SortBy     string // due_date, priority or created_at
	Order      string // asc or desc
	Limit      int
}

type TaskService interface {
	Create(db *gorm.DB, input CreateTaskInput) (*models.Task, error)
	Get(db *gorm.DB, id uuid.UUID) (*models.Task, error)
	Update(db *gorm.DB, actorID, id uuid.UUID, patch TaskPatch) (*models.Task, error)
	Delete(db *gorm.DB, actorID, id uuid.UUID) error
	List(db *gorm.DB, filter TaskFilter) ([]models.Task, error)
	Search(db *gorm.DB, query string, filter TaskFilter) ([]models.Task, error)
	Overdue(db *gorm.DB, asOf time.Time) ([]models.Task, error)
	DueBetween(db *gorm.DB, from, to time.Time, includeNoDueDate bool) ([]models.Task, error)
	Assign(db *gorm.DB, actorID, taskID uuid.UUID, assigneeID *uuid.UUID) (*models.Task, error)
	CreateFromTemplate(db *gorm.DB, actorID, templateID uuid.UUID, overrides CreateTaskInput) (*models.Task, error)
	CreateRecurring(db *gorm.DB, input CreateTaskInput, rule RecurrenceRule) (*models.Task, error)
	ProcessRecurring(db *gorm.DB, now time.Time) ([]models.Task, error)
}

type TaskServiceImpl struct {
	events Sink
}

func NewTaskService(events Sink) *TaskServiceImpl {
	return &TaskServiceImpl{events: events}
}

func (s *TaskServiceImpl) Create(db *gorm.DB, input CreateTaskInput) (*models.Task, error) {
	task, err := s.buildTask(db, input)
	if err != nil {
		return nil, err
	}
	if err := db.Create(task).Error; err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTaskCreated, Task: task, Actor: input.CreatorID})
	return task, nil
}

// buildTask validates the input against the target project and returns
// an unsaved task with status todo.
func (s *TaskServiceImpl) buildTask(db *gorm.DB, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, validationErr("task title is required")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, validationErr("unknown task priority %q", priority)
	}

	var project models.Project
	err := db.Preload("Members").Preload("Fields").
		Where("id = ? AND is_active = ?", input.ProjectID, true).
		First(&project).Error
	if err != nil {
		return nil, wrapNotFound(err, "project %s", input.ProjectID)
	}
	if !project.HasMember(input.CreatorID) {
		return nil, permissionErr("user %s is not a member of project %s", input.CreatorID, project.ID)
	}
	if input.AssigneeID != nil && !project.HasMember(*input.AssigneeID) {
		return nil, validationErr("assignee %s is not a member of project %s", *input.AssigneeID, project.ID)
	}
	if err := validateCustomFields(project.Fields, input.CustomFields, true); err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.Task{
		ID:             uuid.Must(uuid.NewV4()),
		Title:          input.Title,
		Description:    input.Description,
		Status:         models.StatusTodo,
		Priority:       priority,
		ProjectID:      project.ID,
		CreatorID:      input.CreatorID,
		AssigneeID:     input.AssigneeID,
		DueDate:        input.DueDate,
		Tags:           input.Tags,
		CustomFields:   input.CustomFields,
		EstimatedHours: input.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *TaskServiceImpl) Get(db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := db.
		Preload("Project").
		Preload("Creator").
		Preload("Assignee").
		Preload("TimeEntries").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, wrapNotFound(err, "task %s", id)
	}
	return &task, nil
}

func (s *TaskServiceImpl) Update(db *gorm.DB, actorID, id uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.Get(db, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(db, task.ProjectID, actorID); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, validationErr("task title cannot be empty")
		}
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, validationErr("unknown task priority %q", *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.Status != nil && *patch.Status != task.Status {
		next := *patch.Status
		if !next.Valid() {
			return nil, validationErr("unknown task status %q", next)
		}
		if !task.Status.CanTransitionTo(next) {
			return nil, validationErr("task %s is %s and cannot change status", task.ID, task.Status)
		}
		task.Status = next
		if next == models.StatusDone {
			now := time.Now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		task.Tags = *patch.Tags
	}
	if patch.CustomFields != nil {
		defs, err := s.fieldDefs(db, task.ProjectID)
		if err != nil {
			return nil, err
		}
		if err := validateCustomFields(defs, patch.CustomFields, false); err != nil {
			return nil, err
		}
		if task.CustomFields == nil {
			task.CustomFields = map[string]any{}
		}
		for name, value := range patch.CustomFields {
			task.CustomFields[name] = value
		}
	}
	if patch.EstimatedHours != nil {
		if *patch.EstimatedHours < 0 {
			return nil, validationErr("estimated hours cannot be negative")
		}
		task.EstimatedHours = *patch.EstimatedHours
	}
	task.UpdatedAt = time.Now()

	if err := db.Save(task).Error; err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTaskUpdated, Task: task, Actor: actorID})
	return task, nil
}

// Delete removes the task and its time entries. A second delete of the
// same ID reports NotFound.
func (s *TaskServiceImpl) Delete(db *gorm.DB, actorID, id uuid.UUID) error {
	task, err := s.Get(db, id)
	if err != nil {
		return err
	}
	if err := s.requireMember(db, task.ProjectID, actorID); err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TimeEntry{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Task{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundErr("task %s", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(s.events, Event{Type: EventTaskDeleted, Task: task, Actor: actorID})
	return nil
}

func (s *TaskServiceImpl) List(db *gorm.DB, filter TaskFilter) ([]models.Task, error) {
	query := db.Model(&models.Task{}).
		Preload("Project").
		Preload("Assignee")

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, validationErr("unknown task status %q", *filter.Status)
		}
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Priority != nil {
		if !filter.Priority.Valid() {
			return nil, validationErr("unknown task priority %q", *filter.Priority)
		}
		query = query.Where("priority = ?", *filter.Priority)
	}

	order, err := sortClause(filter.SortBy, filter.Order)
	if err != nil {
		return nil, err
	}
	query = query.Order(order)

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}

	// Tags live in a JSON column; filter them here rather than with
	// driver-specific JSON operators.
	if filter.Tag != "" {
		filtered := tasks[:0]
		for _, task := range tasks {
			if task.HasTag(filter.Tag) {
				filtered = append(filtered, task)
			}
		}
		tasks = filtered
	}
	return tasks, nil
}

func (s *TaskServiceImpl) Search(db *gorm.DB, query string, filter TaskFilter) ([]models.Task, error) {
	pattern := "%" + query + "%"
	scoped := db.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	return s.List(scoped, filter)
}

func (s *TaskServiceImpl) Overdue(db *gorm.DB, asOf time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := db.
		Preload("Project").
		Preload("Assignee").
		Where("due_date IS NOT NULL AND due_date < ?", asOf).
		Where("status NOT IN ?", []models.TaskStatus{models.StatusDone, models.StatusCancelled}).
		Order("due_date ASC").
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) DueBetween(db *gorm.DB, from, to time.Time, includeNoDueDate bool) ([]models.Task, error) {
	query := db.
		Preload("Project").
		Preload("Assignee").
		Where("status NOT IN ?", []models.TaskStatus{models.StatusDone, models.StatusCancelled})

	if includeNoDueDate {
		query = query.Where("(due_date >= ? AND due_date < ?) OR due_date IS NULL", from, to)
	} else {
		query = query.Where("due_date >= ? AND due_date < ?", from, to)
	}

	var tasks []models.Task
	err := query.Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

func (s *TaskServiceImpl) Assign(db *gorm.DB, actorID, taskID uuid.UUID, assigneeID *uuid.UUID) (*models.Task, error) {
	task, err := s.Get(db, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(db, task.ProjectID, actorID); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		project, err := s.project(db, task.ProjectID)
		if err != nil {
			return nil, err
		}
		if !project.HasMember(*assigneeID) {
			return nil, validationErr("assignee %s is not a member of project %s", *assigneeID, task.ProjectID)
		}
	}

	task.AssigneeID = assigneeID
	task.UpdatedAt = time.Now()
	if err := db.Save(task).Error; err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTaskAssigned, Task: task, Actor: actorID})
	return task, nil
}

// CreateFromTemplate instantiates a task from a template; non-zero
// override fields win over the template defaults.
func (s *TaskServiceImpl) CreateFromTemplate(db *gorm.DB, actorID, templateID uuid.UUID, overrides CreateTaskInput) (*models.Task, error) {
	var template models.TaskTemplate
	if err := db.Where("id = ?", templateID).First(&template).Error; err != nil {
		return nil, wrapNotFound(err, "task template %s", templateID)
	}

	input := CreateTaskInput{
		ProjectID:      template.ProjectID,
		CreatorID:      actorID,
		Title:          template.TitleTemplate,
		Description:    template.DescriptionTemplate,
		Priority:       template.DefaultPriority,
		Tags:           template.DefaultTags,
		CustomFields:   template.DefaultCustomFields,
		EstimatedHours: template.EstimatedHours,
	}
	if overrides.Title != "" {
		input.Title = overrides.Title
	}
	if overrides.Description != "" {
		input.Description = overrides.Description
	}
	if overrides.Priority != "" {
		input.Priority = overrides.Priority
	}
	if overrides.AssigneeID != nil {
		input.AssigneeID = overrides.AssigneeID
	}
	if overrides.DueDate != nil {
		input.DueDate = overrides.DueDate
	}
	if len(overrides.Tags) > 0 {
		input.Tags = overrides.Tags
	}

	return s.Create(db, input)
}

func (s *TaskServiceImpl) CreateRecurring(db *gorm.DB, input CreateTaskInput, rule RecurrenceRule) (*models.Task, error) {
	if !rule.Pattern.Valid() {
		return nil, validationErr("unknown recurrence pattern %q", rule.Pattern)
	}
	if rule.Frequency <= 0 {
		rule.Frequency = 1
	}

	task, err := s.buildTask(db, input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task.IsRecurring = true
	task.RecurrencePattern = rule.Pattern
	task.RecurrenceFrequency = rule.Frequency
	task.RecurrenceEnd = rule.End
	task.LastRecurrence = &now

	if err := db.Create(task).Error; err != nil {
		return nil, err
	}

	publish(s.events, Event{Type: EventTaskCreated, Task: task, Actor: input.CreatorID})
	return task, nil
}

// ProcessRecurring clones every recurring task whose next occurrence
// has arrived, shifting the due date by the recurrence interval. The
// original keeps its recurrence settings; the clone is a one-off.
func (s *TaskServiceImpl) ProcessRecurring(db *gorm.DB, now time.Time) ([]models.Task, error) {
	var recurring []models.Task
	err := db.
		Where("is_recurring = ?", true).
		Where("status != ?", models.StatusCancelled).
		Where("recurrence_end IS NULL OR recurrence_end >= ?", now).
		Find(&recurring).Error
	if err != nil {
		return nil, err
	}

	var created []models.Task
	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range recurring {
			task := &recurring[i]
			if task.LastRecurrence == nil {
				continue
			}

			next := advance(*task.LastRecurrence, task.RecurrencePattern, task.RecurrenceFrequency)
			if next.After(now) {
				continue
			}

			var due *time.Time
			if task.DueDate != nil {
				shifted := advance(*task.DueDate, task.RecurrencePattern, task.RecurrenceFrequency)
				due = &shifted
			}

			clone := models.Task{
				ID:             uuid.Must(uuid.NewV4()),
				Title:          task.Title,
				Description:    task.Description,
				Status:         models.StatusTodo,
				Priority:       task.Priority,
				ProjectID:      task.ProjectID,
				CreatorID:      task.CreatorID,
				AssigneeID:     task.AssigneeID,
				DueDate:        due,
				Tags:           task.Tags,
				CustomFields:   task.CustomFields,
				EstimatedHours: task.EstimatedHours,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.Create(&clone).Error; err != nil {
				return err
			}
			if err := tx.Model(task).Update("last_recurrence", now).Error; err != nil {
				return err
			}
			created = append(created, clone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range created {
		publish(s.events, Event{Type: EventTaskCreated, Task: &created[i], Actor: created[i].CreatorID})
	}
	return created, nil
}

func (s *TaskServiceImpl) project(db *gorm.DB, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := db.Preload("Members").Where("id = ?", projectID).First(&project).Error
	if err != nil {
		return nil, wrapNotFound(err, "project %s", projectID)
	}
	return &project, nil
}

func (s *TaskServiceImpl) requireMember(db *gorm.DB, projectID, userID uuid.UUID) error {
	project, err := s.project(db, projectID)
	if err != nil {
		return err
	}
	if !project.HasMember(userID) {
		return permissionErr("user %s is not a member of project %s", userID, projectID)
	}
	return nil
}

func (s *TaskServiceImpl) fieldDefs(db *gorm.DB, projectID uuid.UUID) ([]models.CustomFieldDef, error) {
	var defs []models.CustomFieldDef
	err := db.Where("project_id = ?", projectID).Find(&defs).Error
	return defs, err
}

// advance shifts t forward by frequency units of the pattern. Monthly
// recurrence uses calendar months, so Jan 31 + 1 month normalizes per
// time.AddDate.
func advance(t time.Time, pattern models.RecurrencePattern, frequency int) time.Time {
	switch pattern {
	case models.RecurrenceDaily:
		return t.AddDate(0, 0, frequency)
	case models.RecurrenceWeekly:
		return t.AddDate(0, 0, 7*frequency)
	case models.RecurrenceMonthly:
		return t.AddDate(0, frequency, 0)
	}
	return t
}

func sortClause(sortBy, order string) (string, error) {
	direction := "ASC"
	switch strings.ToLower(order) {
	case "", "asc":
	case "desc":
		direction = "DESC"
	default:
		return "", validationErr("unknown sort order %q", order)
	}

	switch sortBy {
	case "", "created_at":
		return "created_at " + direction, nil
	case "due_date":
		return "due_date " + direction, nil
	case "priority":
		return fmt.Sprintf(
			"CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 ELSE 0 END %s",
			direction,
		), nil
	default:
		return "", validationErr("unknown sort key %q", sortBy)
	}
}

// validateCustomFields checks values against the project's field
// definitions. Required fields are only enforced when checkRequired is
// set (task creation).
func validateCustomFields(defs []models.CustomFieldDef, values map[string]any, checkRequired bool) error {
	byName := make(map[string]models.CustomFieldDef, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	for name, value := range values {
		def, ok := byName[name]
		if !ok {
			return validationErr("unknown custom field %q", name)
		}
		if err := validateFieldValue(def, value); err != nil {
			return err
		}
	}

	if checkRequired {
		for _, def := range defs {
			if def.Required {
				if _, ok := values[def.Name]; !ok {
					return validationErr("custom field %q is required", def.Name)
				}
			}
		}
	}
	return nil
}

func validateFieldValue(def models.CustomFieldDef, value any) error {
	switch def.Type {
	case models.FieldTypeText:
		if _, ok := value.(string); !ok {
			return validationErr("field %q expects text", def.Name)
		}
	case models.FieldTypeNumber:
		switch value.(type) {
		case int, int64, float64:
		default:
			return validationErr("field %q expects a number", def.Name)
		}
	case models.FieldTypeDate:
		str, ok := value.(string)
		if !ok {
			return validationErr("field %q expects a date string", def.Name)
		}
		if _, err := time.Parse("2006-01-02", str); err != nil {
			if _, err := time.Parse(time.RFC3339, str); err != nil {
				return validationErr("field %q expects a date like 2006-01-02", def.Name)
			}
		}
	case models.FieldTypeSelect:
		str, ok := value.(string)
		if !ok || !contains(def.Options, str) {
			return validationErr("field %q expects one of %v", def.Name, def.Options)
		}
	case models.FieldTypeMultiSelect:
		selected, err := stringSlice(value)
		if err != nil {
			return validationErr("field %q expects a list of options", def.Name)
		}
		for _, item := range selected {
			if !contains(def.Options, item) {
				return validationErr("field %q does not allow option %q", def.Name, item)
			}
		}
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}

func stringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("not a string: %v", item)
			}
			out = append(out, str)
		}
		return out, nil
	}
	return nil, fmt.Errorf("not a list: %v", value)
}
