package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voxlink/voxlink/internal/services"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send is the REST path for posting; the gateway carries realtime
// fan-out separately, so REST posts reach connected clients on their
// next history fetch.
func (h *MessageHandler) Send(c *gin.Context) {
	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(c.Param("channelID"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, msg)
}

func (h *MessageHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.messages.History(c.Param("channelID"), principal(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, msgs)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	if err := h.messages.Delete(c.Param("messageID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
