package app

import (
	"fmt"
	"math"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/domain"
)

// CheatOutcome reports what happened to a cheat attempt.
type CheatOutcome struct {
	Detected    bool
	Probability float64
}

// DetectionProbability estimates how likely move is to be caught right now.
func (e *Engine) DetectionProbability(p *domain.Player, move domain.CheatMove) float64 {
	c := e.cfg.Cheat
	prob := c.BaseDetection
	if move.Kind == domain.CheatSwapRank {
		prob += c.RankSwapPenalty
	}

	if p.Experience < c.ExperiencePivot {
		prob += c.NoviceBonus * (c.ExperiencePivot - p.Experience) / c.ExperiencePivot
	} else if span := c.ExperienceCeiling - c.ExperiencePivot; span > 0 {
		prob -= c.VeteranDiscount * math.Min(1, (p.Experience-c.ExperiencePivot)/span)
	}

	pressure := vault.ComputePressureSnapshot(p, e.players).Value
	prob += math.Min(0.25, pressure*0.45)

	if p.Chips < c.LowStackThreshold {
		prob += 0.2 + math.Min(0.3, float64(c.LowStackThreshold-p.Chips)/400)
	}
	prob += math.Min(float64(p.Cheat.Attempts)*0.015, 0.20)
	prob += math.Min(0.40, e.state.GlobalAlertLevel/100)

	return math.Max(c.MinDetection, math.Min(c.MaxDetection, prob))
}

// AttemptCheat tries to swap one of the active player's hole cards. A detected
// cheat forfeits the stack to the hand and eliminates the player.
func (e *Engine) AttemptCheat(playerID string, move domain.CheatMove) (CheatOutcome, []Event, error) {
	kind := domain.ActionKind("cheat")
	p, ok := e.Player(playerID)
	if !ok {
		return CheatOutcome{}, nil, invalid(playerID, kind, ErrUnknownPlayer)
	}
	if !e.cfg.Cheat.Enabled {
		return CheatOutcome{}, nil, invalid(playerID, kind, ErrCheatDisabled)
	}
	if e.state.Phase != domain.PhaseBetting || e.trial != nil {
		return CheatOutcome{}, nil, invalid(playerID, kind, ErrWrongPhase)
	}
	if !e.isActive(p) {
		return CheatOutcome{}, nil, invalid(playerID, kind, ErrNotActivePlayer)
	}
	if err := e.validateCheat(p, move); err != nil {
		return CheatOutcome{}, nil, invalid(playerID, kind, err)
	}
	if e.state.GlobalAlertLevel >= e.cfg.Cheat.BlockThreshold && p.Experience < e.cfg.Cheat.BlockExemptExperience {
		return CheatOutcome{}, nil, invalid(playerID, kind, ErrCheatBlocked)
	}

	prob := e.DetectionProbability(p, move)
	p.Cheat.Attempts++
	if e.rng.Float64() < prob {
		e.state.GlobalAlertLevel = math.Min(100, e.state.GlobalAlertLevel+e.cfg.Cheat.AlertIncrement)
		p.Experience = math.Max(0, p.Experience-e.cfg.Cheat.DetectedExperienceLoss)
		// Forfeit through the pot so the stack still funds the side pots.
		forfeited := e.pay(p, p.Chips)

		events := []Event{e.emit(eventlog.CategoryCheat, EventCheatDetected, p.ID, fmt.Sprintf("%s caught tampering with a card", p.Name), map[string]any{
			"kind":        string(move.Kind),
			"probability": prob,
			"forfeited":   forfeited,
			"alert_level": e.state.GlobalAlertLevel,
		})}
		events = append(events, e.eliminate(p, "caught cheating")...)
		e.state.DecisionSeq++
		events = append(events, e.advanceFrom(p.Seat)...)
		e.logger.Info("AttemptCheat: %s detected (p=%.2f)", p.ID, prob)
		return CheatOutcome{Detected: true, Probability: prob}, events, nil
	}

	old := p.Hole[move.CardIndex]
	replacement := old
	if move.Kind == domain.CheatSwapSuit {
		replacement.Suit = move.NewSuit
	} else {
		replacement.Rank = move.NewRank
	}
	p.Hole[move.CardIndex] = replacement
	p.Cheat.Successes++
	p.Experience += e.cfg.Cheat.SuccessExperience

	return CheatOutcome{Probability: prob}, []Event{e.emit(eventlog.CategoryCheat, EventCheatSucceeded, p.ID, fmt.Sprintf("%s swaps %s for %s", p.Name, old, replacement), map[string]any{
		"kind":        string(move.Kind),
		"probability": prob,
		"from":        old.String(),
		"to":          replacement.String(),
	}, p.ID)}, nil
}

func (e *Engine) validateCheat(p *domain.Player, move domain.CheatMove) error {
	if move.CardIndex < 0 || move.CardIndex >= domain.HoleCardCount {
		return fmt.Errorf("card index %d: %w", move.CardIndex, ErrInvalidCheat)
	}
	current := p.Hole[move.CardIndex]
	switch move.Kind {
	case domain.CheatSwapSuit:
		if !(domain.Card{Rank: current.Rank, Suit: move.NewSuit}).Valid() || move.NewSuit == current.Suit {
			return fmt.Errorf("suit %d: %w", move.NewSuit, ErrInvalidCheat)
		}
	case domain.CheatSwapRank:
		if !(domain.Card{Rank: move.NewRank, Suit: current.Suit}).Valid() || move.NewRank == current.Rank {
			return fmt.Errorf("rank %d: %w", move.NewRank, ErrInvalidCheat)
		}
	default:
		return fmt.Errorf("kind %q: %w", move.Kind, ErrInvalidCheat)
	}
	return nil
}
