package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/modules/messenger"
)

type MessengerHandler struct {
	messenger messenger.Service
}

func NewMessengerHandler(svc messenger.Service) *MessengerHandler {
	return &MessengerHandler{messenger: svc}
}

type sendRequest struct {
	Text string `json:"text"`
}

// GET /api/v1/messages/dialogs
func (h *MessengerHandler) Dialogs(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	offset, limit := page(c)
	dialogs, err := h.messenger.Dialogs(c.Request.Context(), userID, offset, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondList(c, dialogs)
}

// GET /api/v1/messages/:avatar_id
func (h *MessengerHandler) History(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	avatarID, ok := pathID(c, "avatar_id")
	if !ok {
		return
	}
	offset, limit := page(c)
	msgs, err := h.messenger.ListMessages(c.Request.Context(), userID, avatarID, offset, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondList(c, msgs)
}

// POST /api/v1/messages/:avatar_id/send
// body: { "text": "..." }
func (h *MessengerHandler) Send(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	avatarID, ok := pathID(c, "avatar_id")
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	msg, err := h.messenger.SendToAvatar(c.Request.Context(), userID, avatarID, req.Text)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, msg)
}

// POST /api/v1/messages/:avatar_id/read
func (h *MessengerHandler) Read(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	avatarID, ok := pathID(c, "avatar_id")
	if !ok {
		return
	}
	if err := h.messenger.MarkRead(c.Request.Context(), userID, avatarID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondStatus(c)
}

// POST /api/v1/messages/assistant/send
func (h *MessengerHandler) SendToAssistant(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reply, err := h.messenger.SendToAssistant(c.Request.Context(), userID, req.Text)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, reply)
}

// GET /api/v1/messages/assistant
func (h *MessengerHandler) AssistantHistory(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	offset, limit := page(c)
	msgs, err := h.messenger.AssistantHistory(c.Request.Context(), userID, offset, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondList(c, msgs)
}
