package handler

import (
	"net/http"
	"time"

	"roast-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Roast handles one turn. Fields are form-encoded: userInput (required),
// conversation (JSON array, client mode) and sessionId (server mode).
// Both success and failure answer 200; the outcome is in the body.
func (h *ChatHandler) Roast(c *gin.Context) {
	result := h.chatService.Turn(c.Request.Context(), service.TurnInput{
		UserInput:    c.PostForm("userInput"),
		Conversation: c.PostForm("conversation"),
		SessionID:    c.PostForm("sessionId"),
	})

	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) Reset(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.Reset(c.Request.Context(), c.PostForm("sessionId")))
}

func (h *ChatHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":     "Roast AI",
		"StateMode": h.chatService.Mode(),
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
