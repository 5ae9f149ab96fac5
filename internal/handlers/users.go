package handlers

import (
	"net/http"

	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	db          *gorm.DB
	userService services.UserService
}

func NewUserHandler(db *gorm.DB, userService services.UserService) *UserHandler {
	return &UserHandler{db: db, userService: userService}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := h.userService.ByID(h.db, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, UserProfileResponse{
		ID:          user.ID.String(),
		ChatID:      user.ChatID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Timezone:    user.Timezone,
		IsActive:    user.IsActive,
	})
}

type timezoneRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

func (h *UserHandler) SetTimezone(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req timezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.SetTimezone(h.db, userID, req.Timezone); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "timezone updated"})
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	users, err := h.userService.Search(h.db, query)
	if err != nil {
		writeError(c, err)
		return
	}

	profiles := make([]UserProfileResponse, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, UserProfileResponse{
			ID:          user.ID.String(),
			ChatID:      user.ChatID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Timezone:    user.Timezone,
			IsActive:    user.IsActive,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": profiles})
}
