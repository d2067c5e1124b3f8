package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/companion-backend/internal/platform/ctxutil"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope and aborts the chain. The request
// id lets a client quote the failing call.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	apiErr := APIError{Message: msg, Code: code}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		apiErr.RequestID = td.RequestID
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: apiErr})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondList writes items as a JSON array; an empty page is [] rather
// than null.
func RespondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}

// RespondStatus acknowledges a command that has nothing to return.
func RespondStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": true})
}
