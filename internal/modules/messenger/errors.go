package messenger

import (
	"errors"

	"github.com/yungbote/companion-backend/internal/generation"
)

var (
	// ErrBlocked stops an unsubscribed user who used up the free messages of
	// a conversation. Nothing is persisted when it is returned.
	ErrBlocked = errors.New("subscription required")

	// ErrDailyLimitReached marks the farewell substitution inside a pipeline
	// run. It never reaches a caller.
	ErrDailyLimitReached = errors.New("daily photo limit reached")

	ErrAvatarNotFound = errors.New("avatar not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrEmptyText      = errors.New("message text is empty")
	ErrTextTooLong    = errors.New("message text is too long")

	ErrTransportUnreachable = generation.ErrTransportUnreachable
)

type GenerationFailure = generation.GenerationFailure

// completionFailed is returned when the completion model produced nothing.
func completionFailed() error {
	return &GenerationFailure{Message: "the companion did not answer"}
}
