package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskhive/taskhive/internal/middleware"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := middleware.NewRateLimiter(1, 2)
	defer rl.Close()

	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	send := func() int {
		req, _ := http.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Burst of two passes, the third is rejected.
	if code := send(); code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, code)
	}
	if code := send(); code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Errorf("Expected status %d, got %d", http.StatusTooManyRequests, code)
	}

	// A different client keeps its own bucket.
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}
