package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/companion-backend/internal/data/repos"
	"github.com/yungbote/companion-backend/internal/generation"
	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/pkg/dbctx"
)

type MediaHandler struct {
	media      repos.MediaRepo
	generation generation.Service
}

func NewMediaHandler(media repos.MediaRepo, gen generation.Service) *MediaHandler {
	return &MediaHandler{media: media, generation: gen}
}

// GET /api/v1/media/:id
func (h *MediaHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.media.GetByID(dbctx.Context{Ctx: c.Request.Context()}, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.RespondError(c, http.StatusNotFound, "media.not_found", err)
		return
	}
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, m)
}

// POST /api/v1/media/generate
// body: { "model", "prompt", "gender", "age", "images_count" }
// Blocks until the image workers answer or the generation timeout passes.
func (h *MediaHandler) Generate(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	images, err := h.generation.Generate(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"images": images})
}
