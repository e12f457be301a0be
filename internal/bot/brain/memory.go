package brain

import (
	"zhajinhua/internal/app"
)

// GameMemory stores what a bot has seen across its decisions. It only learns from
// the public part of the table views it is handed.
type GameMemory struct {
	Opponents map[string]*OpponentProfile
	Decisions int

	hand    int
	highBet int64
}

// NewMemory initializes a fresh memory state.
func NewMemory() *GameMemory {
	return &GameMemory{
		Opponents: make(map[string]*OpponentProfile),
	}
}

// Reset forgets everything, for a new game.
func (m *GameMemory) Reset() {
	m.Opponents = make(map[string]*OpponentProfile)
	m.Decisions = 0
	m.hand = 0
	m.highBet = 0
}

// Profile returns the profile for id, creating it on first sight.
func (m *GameMemory) Profile(id string) *OpponentProfile {
	p, ok := m.Opponents[id]
	if !ok {
		p = NewOpponentProfile(id)
		m.Opponents[id] = p
	}
	return p
}

// Observe diffs a table view against what was seen before. Bets that grew past the
// highest bet of the previous observation count as raises, the rest as calls.
func (m *GameMemory) Observe(view app.TableView) {
	m.Decisions++
	if view.HandCount != m.hand {
		m.hand = view.HandCount
		m.highBet = 0
		for _, p := range m.Opponents {
			p.startHand()
		}
	}

	prevHigh := max(m.highBet, view.Self.Bet)
	for _, s := range view.Seats {
		if s.ID == view.Self.ID || !s.Alive {
			continue
		}
		p, seen := m.Opponents[s.ID]
		if !seen {
			p = m.Profile(s.ID)
			p.Hands = 1
		}
		if s.Folded && !p.Folded {
			p.Folded = true
			p.Folds++
		}
		if s.HasLooked && !p.Looked {
			p.Looked = true
			p.Looks++
		}
		if s.Bet > p.LastBet {
			if s.Bet > prevHigh {
				p.Raises++
				p.HandRaises++
				if !s.HasLooked {
					p.BlindRaises++
				}
			} else {
				p.Calls++
			}
			p.LastBet = s.Bet
		}
		if s.Bet > m.highBet {
			m.highBet = s.Bet
		}
	}
	m.highBet = max(m.highBet, view.Self.Bet, view.CurrentBet)
}
