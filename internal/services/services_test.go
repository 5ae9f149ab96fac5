package services_test

import (
	"sync"
	"testing"

	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// captureSink records published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []services.Event
}

func (s *captureSink) Publish(event services.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType services.EventType) []services.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []services.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func seedUser(t *testing.T, db *gorm.DB, chatID, username string) *models.User {
	t.Helper()
	user, err := services.NewUserService("UTC").GetOrCreate(db, chatID, username, "", "")
	require.NoError(t, err)
	return user
}

func seedProject(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Project {
	t.Helper()
	project, err := services.NewProjectService().Create(db, owner.ID, services.CreateProjectInput{Name: name})
	require.NoError(t, err)
	return project
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewDB(t)
}
