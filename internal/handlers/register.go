package handlers

import (
	"net/http"
	"strings"

	"github.com/taskhive/taskhive/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RegisterHandler struct {
	db          *gorm.DB
	authService services.AuthService
}

func NewRegisterHandler(db *gorm.DB, authService services.AuthService) *RegisterHandler {
	return &RegisterHandler{db: db, authService: authService}
}

type RegistrationResponse struct {
	Message string               `json:"message"`
	User    *UserProfileResponse `json:"user"`
}

func (h *RegisterHandler) Registration(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.authService.Register(h.db, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Message: "Registration successful",
		User: &UserProfileResponse{
			ID:          user.ID.String(),
			ChatID:      user.ChatID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			Timezone:    user.Timezone,
			IsActive:    user.IsActive,
		},
	})
}
