package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

var ErrGameOver = errors.New("game is over")

// Cause explains why an action was forced on a player.
type Cause string

const (
	CauseTimeout       Cause = "timeout"
	CauseAgentError    Cause = "agent_error"
	CauseInvalidAction Cause = "invalid_action"
	CauseNoAgent       Cause = "no_agent"
)

// CallbackError is a failed start or chunk notification. It is logged and never returned.
type CallbackError struct {
	Phase    string // "start" or "chunk"
	PlayerID string
	Err      error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s callback for %s: %v", e.Phase, e.PlayerID, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// TimeoutError is an agent call that outlived its deadline. It is resolved with a fallback.
type TimeoutError struct {
	PlayerID string
	Kind     string
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s for %s exceeded %v", e.Kind, e.PlayerID, e.Deadline)
}

func causeOf(err error) Cause {
	var te *TimeoutError
	if errors.As(err, &te) {
		return CauseTimeout
	}
	return CauseAgentError
}
