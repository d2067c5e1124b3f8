package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/companion-backend/internal/http/response"
	"github.com/yungbote/companion-backend/internal/platform/ctxutil"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// requestUser returns the authenticated user id or writes a 401.
func requestUser(c *gin.Context) (int64, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID <= 0 {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errNotAuthenticated)
		return 0, false
	}
	return rd.UserID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, errBadID)
		return 0, false
	}
	return id, true
}

// page reads offset/limit, clamping limit to [1, maxPageLimit].
func page(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit
}
