package domain

import "sort"

// Phase represents the lifecycle stage of a Zhajinhua game.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseDealing      Phase = "dealing"
	PhaseBetting      Phase = "betting"
	PhaseShowdown     Phase = "showdown"
	PhaseHandComplete Phase = "hand_complete"
	PhaseGameOver     Phase = "game_over"
)

// HoleCardCount is the number of cards dealt to every player.
const HoleCardCount = 3

// CheatStats counts a player's covert play within one game.
type CheatStats struct {
	Attempts      int `json:"attempts"`
	Successes     int `json:"successes"`
	MindgameMoves int `json:"mindgame_moves"`
}

// LoanRecord is a single vault loan.
type LoanRecord struct {
	ID              string
	BorrowerID      string
	Principal       int64
	InterestRate    float64
	DueAmount       int64
	CollateralValue int64
	IssuedHand      int
	DueHand         int
	Repaid          bool
	Defaulted       bool
	Seized          int64
}

// Outstanding reports whether the loan is neither repaid nor defaulted.
func (l *LoanRecord) Outstanding() bool {
	return !l.Repaid && !l.Defaulted
}

// Player holds state for an AI-controlled seat.
type Player struct {
	ID   string
	Name string
	Seat int // 0-based, also the acting order

	Chips     int64
	Alive     bool // still has a stake in the game
	Folded    bool // out of the current hand
	AllIn     bool
	HasLooked bool
	Acted     bool  // acted since the last raise in the current round
	Bet       int64 // chips wagered in betting rounds this hand, matched against CurrentBet
	Committed int64 // every chip put into the current hand, antes and stakes included

	Hole [HoleCardCount]Card

	// AI-mutable fields. They carry across hands and are wiped only at game reset.
	Experience      float64
	PersonaID       string
	PersonaTags     map[string]struct{}
	PersonaText     string
	Inventory       []string
	Loans           map[string]*LoanRecord
	Cheat           CheatStats
	PressureHistory []float64
}

// NewPlayer seats a player with a starting stack.
func NewPlayer(id, name string, seat int, chips int64) *Player {
	return &Player{
		ID:          id,
		Name:        name,
		Seat:        seat,
		Chips:       chips,
		Alive:       chips > 0,
		PersonaTags: make(map[string]struct{}),
		Loans:       make(map[string]*LoanRecord),
	}
}

// InHand reports whether the player still contests the current hand.
func (p *Player) InHand() bool {
	return p.Alive && !p.Folded
}

// CanAct reports whether the player can still take betting decisions this hand.
func (p *Player) CanAct() bool {
	return p.InHand() && !p.AllIn
}

// Cards returns a copy of the hole cards.
func (p *Player) Cards() []Card {
	out := make([]Card, HoleCardCount)
	copy(out, p.Hole[:])
	return out
}

// HasItem reports whether the inventory holds itemID.
func (p *Player) HasItem(itemID string) bool {
	for _, id := range p.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}

// ConsumeItem removes the first occurrence of itemID from the inventory.
func (p *Player) ConsumeItem(itemID string) bool {
	for i, id := range p.Inventory {
		if id == itemID {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// OutstandingLoan returns the player's open loan, if any.
func (p *Player) OutstandingLoan() *LoanRecord {
	for _, loan := range p.Loans {
		if loan.Outstanding() {
			return loan
		}
	}
	return nil
}

// SetPersona replaces the persona fields.
func (p *Player) SetPersona(id, text string, tags []string) {
	p.PersonaID = id
	p.PersonaText = text
	p.PersonaTags = make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		p.PersonaTags[tag] = struct{}{}
	}
}

// TagList returns persona tags in sorted order.
func (p *Player) TagList() []string {
	tags := make([]string, 0, len(p.PersonaTags))
	for tag := range p.PersonaTags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ResetAIState zeroes every AI-mutable field. Chips and seating are left alone.
func (p *Player) ResetAIState() {
	p.Experience = 0
	p.PersonaID = ""
	p.PersonaTags = make(map[string]struct{})
	p.PersonaText = ""
	p.Inventory = nil
	p.Loans = make(map[string]*LoanRecord)
	p.Cheat = CheatStats{}
	p.PressureHistory = nil
}

// GameState is the authoritative table state.
type GameState struct {
	Phase             Phase
	RoundIndex        int
	Pot               int64 // committed by players still in the hand
	DeadMoney         int64 // committed by folded or forfeited players
	CurrentBet        int64 // per-player commitment required this hand
	ActivePlayerIndex int   // -1 outside betting
	HandCount         int
	GlobalAlertLevel  float64
	LastWinnerSeat    int
	DecisionSeq       uint64 // bumps every time the state advances past a decision point
}

// NewGameState returns an idle state.
func NewGameState() *GameState {
	s := &GameState{}
	s.Reset()
	return s
}

// Reset returns the state to Idle with every counter cleared.
func (s *GameState) Reset() {
	*s = GameState{
		Phase:             PhaseIdle,
		ActivePlayerIndex: -1,
		LastWinnerSeat:    -1,
	}
}

// TotalStake is everything that will be paid out at the end of the hand.
func (s *GameState) TotalStake() int64 {
	return s.Pot + s.DeadMoney
}
