package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"travelchat/internal/app"
	"travelchat/internal/model"
	"travelchat/internal/transport/http/middleware"
	"travelchat/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *app.SessionService
}

type SaveSessionRequest struct {
	Messages []model.Message `json:"messages" binding:"required"`
}

type RenameSessionRequest struct {
	Name string `json:"name" binding:"required,max=120"`
}

func NewSessionHandler(sessions *app.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create hands out an id for a new chat. Nothing is stored until the chat
// has been saved with at least two messages.
func (h *SessionHandler) Create(c *gin.Context) {
	response.OK(c, gin.H{
		"id":       uuid.NewString(),
		"messages": []model.Message{app.WelcomeMessage()},
	})
}

func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.sessions.LoadAllFor(c.Request.Context(), middleware.OwnerID(c))
	response.OK(c, gin.H{"sessions": sessions})
}

func (h *SessionHandler) Messages(c *gin.Context) {
	messages, ok := h.sessions.LoadMessages(c.Request.Context(), c.Param("id"))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, app.ErrSessionNotFound.Error())
		return
	}
	response.OK(c, gin.H{"messages": messages})
}

func (h *SessionHandler) Save(c *gin.Context) {
	var req SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, saved := h.sessions.Save(c.Request.Context(), req.Messages, c.Param("id"), middleware.OwnerID(c))
	if !saved {
		response.OK(c, gin.H{"saved": false})
		return
	}
	response.OK(c, gin.H{"saved": true, "session": session})
}

func (h *SessionHandler) Rename(c *gin.Context) {
	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, ok := h.sessions.RenameFor(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Name), middleware.OwnerID(c))
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, app.ErrSessionNotFound.Error())
		return
	}
	response.OK(c, gin.H{"session": session})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	h.sessions.DeleteFor(c.Request.Context(), c.Param("id"), middleware.OwnerID(c))
	response.OK(c, gin.H{"id": c.Param("id")})
}
