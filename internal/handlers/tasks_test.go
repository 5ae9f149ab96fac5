package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type MockTaskService struct {
	shouldReturnError error
	tasks             []models.Task
}

func (m *MockTaskService) Create(db *gorm.DB, input services.CreateTaskInput) (*models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	task := models.Task{
		ID:        uuid.Must(uuid.NewV4()),
		Title:     input.Title,
		Status:    models.StatusTodo,
		Priority:  models.PriorityMedium,
		ProjectID: input.ProjectID,
		CreatorID: input.CreatorID,
	}
	m.tasks = append(m.tasks, task)
	return &task, nil
}

func (m *MockTaskService) Get(db *gorm.DB, id uuid.UUID) (*models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	for _, task := range m.tasks {
		if task.ID == id {
			return &task, nil
		}
	}
	return &models.Task{ID: id, Title: "Test Task", Status: models.StatusTodo}, nil
}

func (m *MockTaskService) Update(db *gorm.DB, actorID, id uuid.UUID, patch services.TaskPatch) (*models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	task := models.Task{ID: id, Status: models.StatusTodo}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	return &task, nil
}

func (m *MockTaskService) Delete(db *gorm.DB, actorID, id uuid.UUID) error {
	return m.shouldReturnError
}

func (m *MockTaskService) List(db *gorm.DB, filter services.TaskFilter) ([]models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	return m.tasks, nil
}

func (m *MockTaskService) Search(db *gorm.DB, query string, filter services.TaskFilter) ([]models.Task, error) {
	return m.List(db, filter)
}

func (m *MockTaskService) Overdue(db *gorm.DB, asOf time.Time) ([]models.Task, error) {
	return m.List(db, services.TaskFilter{})
}

func (m *MockTaskService) DueBetween(db *gorm.DB, from, to time.Time, includeNoDueDate bool) ([]models.Task, error) {
	return m.List(db, services.TaskFilter{})
}

func (m *MockTaskService) Assign(db *gorm.DB, actorID, taskID uuid.UUID, assigneeID *uuid.UUID) (*models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	return &models.Task{ID: taskID, AssigneeID: assigneeID}, nil
}

func (m *MockTaskService) CreateFromTemplate(db *gorm.DB, actorID, templateID uuid.UUID, overrides services.CreateTaskInput) (*models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	return &models.Task{ID: uuid.Must(uuid.NewV4())}, nil
}

func (m *MockTaskService) CreateRecurring(db *gorm.DB, input services.CreateTaskInput, rule services.RecurrenceRule) (*models.Task, error) {
	if m.shouldReturnError != nil {
		return nil, m.shouldReturnError
	}
	return &models.Task{ID: uuid.Must(uuid.NewV4()), Title: input.Title, IsRecurring: true}, nil
}

func (m *MockTaskService) ProcessRecurring(db *gorm.DB, now time.Time) ([]models.Task, error) {
	return nil, m.shouldReturnError
}

func setupTaskHandler() (*handlers.TaskHandler, *MockTaskService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := &MockTaskService{}
	handler := handlers.NewTaskHandler(nil, mockService)
	router := gin.New()

	// Stand-in for the auth middleware.
	router.Use(func(c *gin.Context) {
		c.Set("user_id", uuid.Must(uuid.NewV4()))
		c.Next()
	})

	return handler, mockService, router
}

func TestCreateTask(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.POST("/tasks", handler.CreateTask)

	body := map[string]any{
		"project_id":  uuid.Must(uuid.NewV4()).String(),
		"title":       "Test Task",
		"description": "Test Description",
	}
	bodyJSON, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/tasks", bytes.NewBuffer(bodyJSON))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status %d, got %d (body %s)", http.StatusCreated, w.Code, w.Body.String())
	}

	var created models.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}
	if created.Status != models.StatusTodo {
		t.Errorf("Expected status todo, got %s", created.Status)
	}
}

func TestCreateTaskInvalidJSON(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.POST("/tasks", handler.CreateTask)

	req, _ := http.NewRequest("POST", "/tasks", bytes.NewBuffer([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateTaskValidationError(t *testing.T) {
	handler, mockService, router := setupTaskHandler()
	mockService.shouldReturnError = services.ErrValidation

	router.POST("/tasks", handler.CreateTask)

	body := map[string]any{
		"project_id": uuid.Must(uuid.NewV4()).String(),
		"title":      "Test Task",
	}
	bodyJSON, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/tasks", bytes.NewBuffer(bodyJSON))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestGetTaskByID(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.GET("/tasks/:id", handler.GetTaskByID)

	taskID := uuid.Must(uuid.NewV4())

	req, _ := http.NewRequest("GET", "/tasks/"+taskID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var responseTask models.Task
	err := json.Unmarshal(w.Body.Bytes(), &responseTask)
	if err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}

	if responseTask.Title != "Test Task" {
		t.Errorf("Expected title 'Test Task', got '%s'", responseTask.Title)
	}
}

func TestGetTaskByIDNotFound(t *testing.T) {
	handler, mockService, router := setupTaskHandler()

	router.GET("/tasks/:id", handler.GetTaskByID)

	mockService.shouldReturnError = services.ErrNotFound

	taskID := uuid.Must(uuid.NewV4())

	req, _ := http.NewRequest("GET", "/tasks/"+taskID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestGetTaskByIDInvalidID(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.GET("/tasks/:id", handler.GetTaskByID)

	req, _ := http.NewRequest("GET", "/tasks/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestGetTasks(t *testing.T) {
	handler, mockService, router := setupTaskHandler()

	router.GET("/tasks", handler.GetTasks)

	mockService.tasks = []models.Task{
		{Title: "Task 1", Status: models.StatusTodo},
		{Title: "Task 2", Status: models.StatusDone},
	}

	req, _ := http.NewRequest("GET", "/tasks?sortBy=created_at&order=desc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	if err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}

	if response["total"] != float64(2) {
		t.Errorf("Expected total 2, got %v", response["total"])
	}
}

func TestUpdateTask(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.PUT("/tasks/:id", handler.UpdateTask)

	taskID := uuid.Must(uuid.NewV4())
	body := map[string]any{
		"title":  "Updated Task",
		"status": "done",
	}
	bodyJSON, _ := json.Marshal(body)
	req, _ := http.NewRequest("PUT", "/tasks/"+taskID.String(), bytes.NewBuffer(bodyJSON))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestUpdateTaskTerminal(t *testing.T) {
	handler, mockService, router := setupTaskHandler()
	mockService.shouldReturnError = services.ErrValidation

	router.PUT("/tasks/:id", handler.UpdateTask)

	taskID := uuid.Must(uuid.NewV4())
	body := map[string]any{"status": "todo"}
	bodyJSON, _ := json.Marshal(body)
	req, _ := http.NewRequest("PUT", "/tasks/"+taskID.String(), bytes.NewBuffer(bodyJSON))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.DELETE("/tasks/:id", handler.DeleteTask)

	taskID := uuid.Must(uuid.NewV4())

	req, _ := http.NewRequest("DELETE", "/tasks/"+taskID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, w.Code)
	}
}

func TestDeleteTaskForbidden(t *testing.T) {
	handler, mockService, router := setupTaskHandler()
	mockService.shouldReturnError = services.ErrPermissionDenied

	router.DELETE("/tasks/:id", handler.DeleteTask)

	taskID := uuid.Must(uuid.NewV4())

	req, _ := http.NewRequest("DELETE", "/tasks/"+taskID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestAssignTask(t *testing.T) {
	handler, _, router := setupTaskHandler()

	router.POST("/tasks/:id/assign", handler.AssignTask)

	taskID := uuid.Must(uuid.NewV4())
	body := map[string]any{"assignee_id": uuid.Must(uuid.NewV4()).String()}
	bodyJSON, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/tasks/"+taskID.String()+"/assign", bytes.NewBuffer(bodyJSON))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}
