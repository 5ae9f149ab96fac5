package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/taskhive/taskhive/internal/bot"

	"github.com/gin-gonic/gin"
)

type chatWebhookRequest struct {
	ChannelID   string `json:"channel_id" binding:"required"`
	UserID      string `json:"user_id" binding:"required"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Text        string `json:"text" binding:"required"`
}

// ChatWebhook accepts inbound messages from a chat gateway and feeds
// them to the command router. The gateway authenticates with the bot
// token in the X-Bot-Token header.
func ChatWebhook(router *bot.Router, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Bot-Token")), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid bot token"})
			return
		}

		var req chatWebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := router.HandleMessage(bot.Message{
			ChannelID:   req.ChannelID,
			ChatID:      req.UserID,
			Username:    req.Username,
			DisplayName: req.DisplayName,
			AvatarURL:   req.AvatarURL,
			Text:        req.Text,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to handle message"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "handled"})
	}
}
