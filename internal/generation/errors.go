package generation

import (
	"errors"
	"fmt"
)

var (
	ErrGenerationTimeout    = errors.New("generation result did not arrive in time")
	ErrTransportUnreachable = errors.New("transport unreachable")
)

const defaultFailureMessage = "The queue did not respond"

// GenerationFailure is returned when a worker or model answered, but not with
// something usable.
type GenerationFailure struct {
	TaskID  int64
	Message string
}

func (e *GenerationFailure) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultFailureMessage
	}
	if e.TaskID == 0 {
		return "generation failed: " + msg
	}
	return fmt.Sprintf("generation task %d failed: %s", e.TaskID, msg)
}

func IsGenerationFailure(err error) bool {
	var gf *GenerationFailure
	return errors.As(err, &gf)
}

func unreachable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransportUnreachable, err)
}
