package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/companion-backend/internal/generation"
	"github.com/yungbote/companion-backend/internal/modules/messenger"
	"github.com/yungbote/companion-backend/internal/platform/apierr"
)

// Classify maps a service error onto its HTTP status and code. Errors that
// already carry an *apierr.Error keep it.
func Classify(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	var gf *generation.GenerationFailure
	switch {
	case errors.Is(err, messenger.ErrBlocked):
		return apierr.New(http.StatusForbidden, "subscription.required", err)
	case errors.Is(err, messenger.ErrUserNotFound):
		return apierr.New(http.StatusNotFound, "user.not_found", err)
	case errors.Is(err, messenger.ErrAvatarNotFound):
		return apierr.New(http.StatusNotFound, "avatar.not_found", err)
	case errors.Is(err, messenger.ErrEmptyText),
		errors.Is(err, messenger.ErrTextTooLong),
		errors.Is(err, generation.ErrInvalidRequest):
		return apierr.New(http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, generation.ErrGenerationTimeout):
		return apierr.New(http.StatusGatewayTimeout, "queue.timeout", err)
	case errors.As(err, &gf):
		// failures tied to a queued task come from the image workers
		if gf.TaskID != 0 {
			return apierr.New(http.StatusBadGateway, "queue.error", err)
		}
		return apierr.New(http.StatusBadGateway, "avatar.issue", err)
	case errors.Is(err, generation.ErrTransportUnreachable):
		return apierr.New(http.StatusServiceUnavailable, "transport.unreachable", err)
	}
	return apierr.New(http.StatusInternalServerError, "internal_error", err)
}

// RespondServiceError writes err through Classify. Internal errors are
// reported with a generic message.
func RespondServiceError(c *gin.Context, err error) {
	ae := Classify(err)
	_ = c.Error(err)
	if ae.Status >= http.StatusInternalServerError && ae.Code == "internal_error" {
		RespondError(c, ae.Status, ae.Code, errors.New("internal error"))
		return
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
