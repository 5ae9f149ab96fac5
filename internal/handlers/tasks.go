package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

type createTaskRequest struct {
	ProjectID      string         `json:"project_id" binding:"required,uuid"`
	Title          string         `json:"title" binding:"required"`
	Description    string         `json:"description"`
	Priority       string         `json:"priority"`
	AssigneeID     string         `json:"assignee_id"`
	DueDate        *time.Time     `json:"due_date"`
	Tags           []string       `json:"tags"`
	CustomFields   map[string]any `json:"custom_fields"`
	EstimatedHours float64        `json:"estimated_hours"`

	Recurrence *struct {
		Pattern   string     `json:"pattern" binding:"required"`
		Frequency int        `json:"frequency"`
		End       *time.Time `json:"end"`
	} `json:"recurrence"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateTaskInput{
		ProjectID:      uuid.FromStringOrNil(req.ProjectID),
		CreatorID:      userID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       models.TaskPriority(req.Priority),
		DueDate:        req.DueDate,
		Tags:           req.Tags,
		CustomFields:   req.CustomFields,
		EstimatedHours: req.EstimatedHours,
	}
	if req.AssigneeID != "" {
		assigneeID, err := uuid.FromString(req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee_id"})
			return
		}
		input.AssigneeID = &assigneeID
	}

	var task *models.Task
	var err error
	if req.Recurrence != nil {
		task, err = h.taskService.CreateRecurring(h.db, input, services.RecurrenceRule{
			Pattern:   models.RecurrencePattern(req.Recurrence.Pattern),
			Frequency: req.Recurrence.Frequency,
			End:       req.Recurrence.End,
		})
	} else {
		task, err = h.taskService.Create(h.db, input)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	task, err := h.taskService.Get(h.db, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type updateTaskRequest struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	Status         *string        `json:"status"`
	Priority       *string        `json:"priority"`
	DueDate        *time.Time     `json:"due_date"`
	ClearDueDate   bool           `json:"clear_due_date"`
	Tags           *[]string      `json:"tags"`
	CustomFields   map[string]any `json:"custom_fields"`
	EstimatedHours *float64       `json:"estimated_hours"`
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := services.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		DueDate:        req.DueDate,
		ClearDueDate:   req.ClearDueDate,
		Tags:           req.Tags,
		CustomFields:   req.CustomFields,
		EstimatedHours: req.EstimatedHours,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		patch.Priority = &priority
	}

	task, err := h.taskService.Update(h.db, userID, id, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.taskService.Delete(h.db, userID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	filter, err := taskFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tasks []models.Task
	if query := c.Query("q"); query != "" {
		tasks, err = h.taskService.Search(h.db, query, filter)
	} else {
		tasks, err = h.taskService.List(h.db, filter)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *TaskHandler) GetOverdueTasks(c *gin.Context) {
	tasks, err := h.taskService.Overdue(h.db, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

type assignTaskRequest struct {
	AssigneeID string `json:"assignee_id"`
}

func (h *TaskHandler) AssignTask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req assignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var assigneeID *uuid.UUID
	if req.AssigneeID != "" {
		parsed, err := uuid.FromString(req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee_id"})
			return
		}
		assigneeID = &parsed
	}

	task, err := h.taskService.Assign(h.db, userID, id, assigneeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func taskFilterFromQuery(c *gin.Context) (services.TaskFilter, error) {
	filter := services.TaskFilter{
		Tag:    c.Query("tag"),
		SortBy: c.DefaultQuery("sortBy", "created_at"),
		Order:  c.DefaultQuery("order", "desc"),
	}

	if raw := c.Query("project_id"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			return filter, err
		}
		filter.ProjectID = &id
	}
	if raw := c.Query("assignee_id"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			return filter, err
		}
		filter.AssigneeID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.TaskPriority(raw)
		filter.Priority = &priority
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	return filter, nil
}
