package app

import "zhajinhua/internal/app/eventlog"

// Event is a committed log entry emitted by the engine for transport dispatch.
type Event = eventlog.Entry

// EventKind identifies emitted domain events.
type EventKind string

const (
	EventHandStarted      EventKind = "hand_started"
	EventHandDealt        EventKind = "hand_dealt"
	EventAntePosted       EventKind = "ante_posted"
	EventRoundStarted     EventKind = "round_started"
	EventPlayerFolded     EventKind = "player_folded"
	EventPlayerCalled     EventKind = "player_called"
	EventPlayerRaised     EventKind = "player_raised"
	EventPlayerLooked     EventKind = "player_looked"
	EventCompared         EventKind = "compared"
	EventCompareReveal    EventKind = "compare_reveal"
	EventShowdownStarted  EventKind = "showdown_started"
	EventShowdown         EventKind = "showdown"
	EventPotAwarded       EventKind = "pot_awarded"
	EventHandComplete     EventKind = "hand_complete"
	EventPlayerEliminated EventKind = "player_eliminated"
	EventPlayerRevived    EventKind = "player_revived"
	EventGameOver         EventKind = "game_over"
	EventAccusation       EventKind = "accusation"
	EventVerdict          EventKind = "verdict"
	EventCheatSucceeded   EventKind = "cheat_succeeded"
	EventCheatDetected    EventKind = "cheat_detected"
	EventBribe            EventKind = "bribe"
	EventSecretMessage    EventKind = "secret_message"
	EventAuctionOpened    EventKind = "auction_opened"
	EventAuctionBid       EventKind = "auction_bid"
	EventAuctionPass      EventKind = "auction_pass"
	EventAuctionClosed    EventKind = "auction_closed"
)

func (e *Engine) emit(cat eventlog.Category, kind EventKind, playerID, message string, fields map[string]any, recipients ...string) Event {
	entry := e.log.Append(eventlog.Entry{
		Category:   cat,
		Kind:       string(kind),
		HandCount:  e.state.HandCount,
		PlayerID:   playerID,
		Message:    message,
		Fields:     fields,
		Recipients: recipients,
	})
	e.logger.Debug("Engine: %s %s %s", kind, playerID, message)
	return entry
}

func (e *Engine) public(kind EventKind, playerID, message string, fields map[string]any) Event {
	return e.emit(eventlog.CategoryPublic, kind, playerID, message, fields)
}
