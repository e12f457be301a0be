package app

import (
	"errors"
	"fmt"

	"zhajinhua/internal/domain"
)

var (
	ErrIllegalAction     = errors.New("illegal action")
	ErrNotActivePlayer   = errors.New("player is not the active player")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrUnknownPlayer     = errors.New("player not found")
	ErrTooFewPlayers     = errors.New("not enough players to start")
	ErrRoundIncomplete   = errors.New("betting round still open")
	ErrNotGameOver       = errors.New("game is not over")
	ErrTrialPending      = errors.New("accusation trial awaiting verdict")
	ErrNoTrial           = errors.New("no accusation trial pending")
	ErrNoJurors          = errors.New("no eligible jurors for accusation")
	ErrAuctionOpen       = errors.New("auction still open")
	ErrCheatDisabled     = errors.New("cheating is disabled")
	ErrCheatBlocked      = errors.New("security alert blocks cheating")
	ErrInvalidCheat      = errors.New("invalid cheat move")
)

// ValidationError reports an action rejected for the current phase or player. State is unchanged.
type ValidationError struct {
	PlayerID string
	Action   domain.ActionKind
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("%s: %v", e.PlayerID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.PlayerID, e.Action, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(playerID string, kind domain.ActionKind, err error) error {
	return &ValidationError{PlayerID: playerID, Action: kind, Err: err}
}
