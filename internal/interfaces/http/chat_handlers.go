package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/permits-on-the-go/internal/application/service"
)

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	ConversationID *int64 `json:"conversation_id" binding:"omitempty,min=1"`
	PermitID       *int64 `json:"permit_id" binding:"omitempty,min=1"`
	Message        string `json:"message" binding:"required"`
}

// SendChat handles POST /api/chat
func (h *Handlers) SendChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	reply, err := h.services.Chat.Send(c.Request.Context(), actor(c), service.ChatInput{
		ConversationID: req.ConversationID,
		PermitID:       req.PermitID,
		Message:        req.Message,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, reply)
}

// ListChatMessages handles GET /api/chat/conversations/:id/messages
func (h *Handlers) ListChatMessages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	messages, err := h.services.Chat.Messages(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nonNil(messages))
}
