package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/taskhive/taskhive/internal/bot"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/handlers"
	"github.com/taskhive/taskhive/internal/services"
	"github.com/taskhive/taskhive/internal/testutil"

	"github.com/gin-gonic/gin"
)

type memoMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (m *memoMessenger) Send(channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return nil
}

func setupWebhook(t *testing.T, token string) (*gin.Engine, *memoMessenger) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	messenger := &memoMessenger{}
	botRouter := bot.NewRouter(config.BotConfig{Token: token}, config.FeatureConfig{}, bot.RouterDeps{
		DB:        db,
		Users:     services.NewUserService("UTC"),
		Projects:  services.NewProjectService(),
		Tasks:     services.NewTaskService(nil),
		Timers:    services.NewTimerService(nil),
		Messenger: messenger,
	})

	router := gin.New()
	router.POST("/api/chat/webhook", handlers.ChatWebhook(botRouter, token))
	return router, messenger
}

func postWebhook(router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/chat/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Bot-Token", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatWebhookRejectsBadToken(t *testing.T) {
	router, _ := setupWebhook(t, "hive-token")

	w := postWebhook(router, "wrong-token", `{"channel_id":"c1","user_id":"u1","text":"!help"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad token, got %d", w.Code)
	}

	w = postWebhook(router, "", `{"channel_id":"c1","user_id":"u1","text":"!help"}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for missing token, got %d", w.Code)
	}
}

func TestChatWebhookRejectsInvalidBody(t *testing.T) {
	router, _ := setupWebhook(t, "hive-token")

	w := postWebhook(router, "hive-token", `{"channel_id":"c1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing fields, got %d", w.Code)
	}
}

func TestChatWebhookDispatchesCommand(t *testing.T) {
	router, messenger := setupWebhook(t, "hive-token")

	w := postWebhook(router, "hive-token", `{"channel_id":"c1","user_id":"u1","username":"alice","text":"!help"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	if len(messenger.sent) != 1 {
		t.Fatalf("Expected 1 bot reply, got %d", len(messenger.sent))
	}
}

func TestChatWebhookIgnoresPlainChatter(t *testing.T) {
	router, messenger := setupWebhook(t, "hive-token")

	w := postWebhook(router, "hive-token", `{"channel_id":"c1","user_id":"u1","text":"good morning"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	messenger.mu.Lock()
	defer messenger.mu.Unlock()
	if len(messenger.sent) != 0 {
		t.Errorf("Expected no reply to plain chatter, got %d", len(messenger.sent))
	}
}
