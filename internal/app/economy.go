package app

import (
	"fmt"
	"math"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/domain"
)

// RequestLoan lets the active player borrow from the vault. Refusals come back
// as *vault.EconomicError with no state change.
func (e *Engine) RequestLoan(playerID string, req vault.Request) (*domain.LoanRecord, []Event, error) {
	kind := domain.ActionKind("loan")
	p, ok := e.Player(playerID)
	if !ok {
		return nil, nil, invalid(playerID, kind, ErrUnknownPlayer)
	}
	if e.state.Phase != domain.PhaseBetting {
		return nil, nil, invalid(playerID, kind, ErrWrongPhase)
	}
	if !e.isActive(p) {
		return nil, nil, invalid(playerID, kind, ErrNotActivePlayer)
	}
	return e.vault.RequestLoan(p, req, e.state.HandCount)
}

// PressureSnapshot computes the player's current pressure.
func (e *Engine) PressureSnapshot(playerID string) (vault.Pressure, error) {
	p, ok := e.Player(playerID)
	if !ok {
		return vault.Pressure{}, ErrUnknownPlayer
	}
	return vault.ComputePressureSnapshot(p, e.players), nil
}

func (e *Engine) bribe(p *domain.Player, amount int64) []Event {
	p.Chips -= amount
	p.ConsumeItem(e.cfg.Bribe.RequiredItem)
	before := e.state.GlobalAlertLevel
	e.state.GlobalAlertLevel = math.Max(0, before-float64(amount)*e.cfg.Bribe.AlertPerChip)
	return []Event{e.emit(eventlog.CategoryCheat, EventBribe, p.ID, fmt.Sprintf("%s slips %d to the pit boss", p.Name, amount), map[string]any{
		"amount":       amount,
		"alert_before": before,
		"alert_after":  e.state.GlobalAlertLevel,
	})}
}

// SendSecretMessage records a private note between two players and counts it as a mind game.
func (e *Engine) SendSecretMessage(fromID, toID, text string) ([]Event, error) {
	kind := domain.ActionKind("secret_message")
	from, ok := e.Player(fromID)
	if !ok {
		return nil, invalid(fromID, kind, ErrUnknownPlayer)
	}
	to, ok := e.Player(toID)
	if !ok || to.ID == from.ID {
		return nil, invalid(fromID, kind, ErrUnknownPlayer)
	}
	if e.state.Phase == domain.PhaseGameOver || !from.Alive {
		return nil, invalid(fromID, kind, ErrWrongPhase)
	}
	from.Cheat.MindgameMoves++
	return []Event{e.emit(eventlog.CategorySecret, EventSecretMessage, from.ID, text, map[string]any{
		"to": to.ID,
	}, from.ID, to.ID)}, nil
}
