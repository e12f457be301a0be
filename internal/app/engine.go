package app

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Seat describes a player joining the table.
type Seat struct {
	ID   string
	Name string
}

// Engine is the Zhajinhua state machine. It owns the game state and the player
// collection; all mutation goes through its methods on a single goroutine.
type Engine struct {
	cfg    config.GameConfig
	rng    *rand.Rand
	logger runtime.Logger
	log    *eventlog.Log
	vault  *vault.Ledger
	clock  func() time.Time
	deck   func() []domain.Card

	gameID     string
	state      *domain.GameState
	players    []*domain.Player
	firstActor int
	lastPot    int64

	trial   *Trial
	auction *Auction
	summary *domain.FinalSummary
}

// Option customises an Engine.
type Option func(*Engine)

// WithRand sets the random source used for shuffling, cheat detection and auctions.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithDeck replaces the shuffled deck with a fixed one. Cards are dealt from the front.
func WithDeck(deck func() []domain.Card) Option {
	return func(e *Engine) { e.deck = deck }
}

// WithClock overrides the clock used to stamp the final summary.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine seats the players with the configured starting stack. The engine
// writes every event into log.
func NewEngine(cfg config.GameConfig, seats []Seat, log *eventlog.Log, logger runtime.Logger, opts ...Option) (*Engine, error) {
	if len(seats) < MinPlayersToStartGame {
		return nil, ErrTooFewPlayers
	}
	e := &Engine{
		cfg:    cfg,
		logger: logger,
		log:    log,
		vault:  vault.NewLedger(cfg.Vault, log, logger),
		clock:  time.Now,
		gameID: uuid.NewString(),
		state:  domain.NewGameState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.deck == nil {
		e.deck = func() []domain.Card { return domain.ShuffleDeck(e.rng, domain.NewDeck()) }
	}

	seen := make(map[string]bool, len(seats))
	for i, s := range seats {
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate seat %q: %w", s.ID, ErrIllegalAction)
		}
		seen[s.ID] = true
		e.players = append(e.players, domain.NewPlayer(s.ID, s.Name, i, cfg.Table.InitialChips))
	}
	return e, nil
}

// GameID identifies the current game. It changes on every reset.
func (e *Engine) GameID() string { return e.gameID }

// Config returns the configuration the engine runs with.
func (e *Engine) Config() config.GameConfig { return e.cfg }

// Log returns the event log the engine writes to.
func (e *Engine) Log() *eventlog.Log { return e.log }

// Vault exposes the loan ledger for read-only inspection.
func (e *Engine) Vault() *vault.Ledger { return e.vault }

// State returns a copy of the game state.
func (e *Engine) State() domain.GameState { return *e.state }

// Phase returns the current phase.
func (e *Engine) Phase() domain.Phase { return e.state.Phase }

// DecisionSeq changes every time the state moves past a decision point.
func (e *Engine) DecisionSeq() uint64 { return e.state.DecisionSeq }

// Players returns the live player collection in seat order. Callers outside the
// engine's goroutine must treat it as read-only.
func (e *Engine) Players() []*domain.Player { return e.players }

// Player looks up a player by id.
func (e *Engine) Player(id string) (*domain.Player, bool) {
	for _, p := range e.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// StartHand deals a new hand: Idle or HandComplete -> Dealing -> Betting(0).
func (e *Engine) StartHand() ([]Event, error) {
	if e.state.Phase != domain.PhaseIdle && e.state.Phase != domain.PhaseHandComplete {
		return nil, invalid("", "", ErrWrongPhase)
	}
	if e.auction != nil {
		return nil, invalid("", "", ErrAuctionOpen)
	}
	if e.aliveCount() < MinPlayersToStartGame {
		return nil, ErrTooFewPlayers
	}

	if e.state.HandCount > 0 {
		e.firstActor = e.nextAliveSeat(e.firstActor)
		e.state.GlobalAlertLevel -= e.cfg.Cheat.AlertDecay
		if e.state.GlobalAlertLevel < 0 {
			e.state.GlobalAlertLevel = 0
		}
	} else if !e.players[e.firstActor].Alive {
		e.firstActor = e.nextAliveSeat(e.firstActor)
	}

	e.state.Phase = domain.PhaseDealing
	e.state.HandCount++
	e.state.RoundIndex = 0
	e.state.Pot = 0
	e.state.DeadMoney = 0
	e.state.CurrentBet = 0
	e.state.ActivePlayerIndex = -1
	e.state.DecisionSeq++

	for _, p := range e.players {
		p.Folded = !p.Alive
		p.AllIn = false
		p.HasLooked = false
		p.Acted = false
		p.Bet = 0
		p.Committed = 0
	}

	events := []Event{e.public(EventHandStarted, "", fmt.Sprintf("Hand %d begins", e.state.HandCount), map[string]any{
		"hand":        e.state.HandCount,
		"first_actor": e.players[e.firstActor].ID,
		"alert_level": e.state.GlobalAlertLevel,
	})}

	deck := e.deck()
	next := 0
	for _, p := range e.actingOrder() {
		if !p.Alive {
			continue
		}
		copy(p.Hole[:], deck[next:next+domain.HoleCardCount])
		next += domain.HoleCardCount
		events = append(events, e.emit(eventlog.CategorySecret, EventHandDealt, p.ID, "cards dealt", map[string]any{
			"cards": domain.FormatCards(p.Cards()),
		}, p.ID))

		pressure := vault.ComputePressureSnapshot(p, e.players)
		p.PressureHistory = append(p.PressureHistory, pressure.Value)
	}

	events = append(events, e.postAntes()...)

	e.state.Phase = domain.PhaseBetting
	events = append(events, e.public(EventRoundStarted, "", "Betting round 1", map[string]any{"round": 0}))
	events = append(events, e.advanceFrom(e.firstActor-1)...)
	return events, nil
}

// AnteTotal is the table ante for the current hand.
func (e *Engine) AnteTotal() int64 {
	if e.cfg.Table.BaseBet <= 0 {
		return 0
	}
	total := e.cfg.Table.BaseBet * int64(e.aliveCount())
	if e.cfg.Table.AnteStepEvery > 0 {
		total += e.cfg.Table.AnteStep * int64((e.state.HandCount-1)/e.cfg.Table.AnteStepEvery)
	}
	return total
}

func (e *Engine) postAntes() []Event {
	total := e.AnteTotal()
	if total == 0 {
		return nil
	}
	var alive []*domain.Player
	for _, p := range e.actingOrder() {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	share := total / int64(len(alive))
	extra := total - share*int64(len(alive))

	events := make([]Event, 0, len(alive))
	for i, p := range alive {
		due := share
		if int64(i) < extra {
			due++
		}
		paid := e.pay(p, due)
		events = append(events, e.public(EventAntePosted, p.ID, fmt.Sprintf("%s posts ante %d", p.Name, paid), map[string]any{
			"amount": paid,
			"all_in": p.AllIn,
		}))
	}
	return events
}

// finishHand pays out, settles loans, retires busted players and decides whether the game is over.
func (e *Engine) finishHand(awards map[int]int64, winnerSeat int) []Event {
	var events []Event
	total := e.state.TotalStake()
	for _, seat := range sortedSeats(awards) {
		amount := awards[seat]
		if amount == 0 {
			continue
		}
		p := e.players[seat]
		p.Chips += amount
		events = append(events, e.public(EventPotAwarded, p.ID, fmt.Sprintf("%s collects %d", p.Name, amount), map[string]any{"amount": amount}))
	}

	e.lastPot = total
	e.state.Phase = domain.PhaseHandComplete
	e.state.Pot = 0
	e.state.DeadMoney = 0
	e.state.CurrentBet = 0
	e.state.ActivePlayerIndex = -1
	e.state.LastWinnerSeat = winnerSeat
	e.state.DecisionSeq++
	if winnerSeat >= 0 {
		bonus := float64(total) / 10
		if bonus > 20 {
			bonus = 20
		}
		e.players[winnerSeat].Experience += 5 + bonus
	}

	_, settled := e.vault.SettleAtHandBoundary(e.players, e.state.HandCount)
	events = append(events, settled...)

	for _, p := range e.players {
		if !p.Alive || p.Chips > 0 {
			continue
		}
		if item, ok := e.cfg.ItemByEffect(ReviveEffect); ok && p.ConsumeItem(item.ID) {
			p.Chips = e.cfg.Table.ReviveChips
			events = append(events, e.public(EventPlayerRevived, p.ID, fmt.Sprintf("%s uses %s and returns with %d", p.Name, item.Name, p.Chips), map[string]any{"chips": p.Chips}))
			continue
		}
		events = append(events, e.eliminate(p, "busted")...)
	}

	winnerID := ""
	if winnerSeat >= 0 {
		winnerID = e.players[winnerSeat].ID
	}
	events = append(events, e.public(EventHandComplete, winnerID, fmt.Sprintf("Hand %d complete", e.state.HandCount), map[string]any{
		"total_stake": total,
	}))

	if e.aliveCount() <= 1 || (e.cfg.Table.MaxHands > 0 && e.state.HandCount >= e.cfg.Table.MaxHands) {
		e.state.Phase = domain.PhaseGameOver
		events = append(events, e.public(EventGameOver, "", "Game over", map[string]any{
			"hands": e.state.HandCount,
			"alive": e.aliveCount(),
		}))
		e.logger.Info("Engine: game %s over after %d hands", e.gameID, e.state.HandCount)
		return events
	}

	events = append(events, e.openAuction()...)
	return events
}

// eliminate takes a player out of the game. Chips still committed stay in the hand as dead money.
func (e *Engine) eliminate(p *domain.Player, reason string) []Event {
	if p.InHand() && e.state.Phase == domain.PhaseBetting {
		e.state.Pot -= p.Committed
		e.state.DeadMoney += p.Committed
	}
	p.Alive = false
	p.Folded = true
	return []Event{e.public(EventPlayerEliminated, p.ID, fmt.Sprintf("%s is out (%s)", p.Name, reason), map[string]any{"reason": reason})}
}

// FinalSummary freezes the terminal record on first call and returns the same value afterwards.
func (e *Engine) FinalSummary() (*domain.FinalSummary, error) {
	if e.state.Phase != domain.PhaseGameOver {
		return nil, ErrNotGameOver
	}
	if e.summary != nil {
		return e.summary, nil
	}

	winnerSeat := -1
	for _, p := range e.players {
		if !p.Alive {
			continue
		}
		if winnerSeat < 0 || p.Chips > e.players[winnerSeat].Chips {
			winnerSeat = p.Seat
		}
	}

	s := &domain.FinalSummary{
		GameID:      e.gameID,
		Phase:       e.state.Phase,
		WinnerSeat:  winnerSeat,
		FinalPot:    e.lastPot,
		TotalRounds: e.state.HandCount,
		CapturedAt:  e.clock().UTC(),
	}
	if winnerSeat >= 0 {
		s.WinnerID = e.players[winnerSeat].ID
	}
	for _, p := range e.players {
		s.Players = append(s.Players, domain.PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			Seat:       p.Seat,
			Chips:      p.Chips,
			Alive:      p.Alive,
			Experience: p.Experience,
			CheatStats: p.Cheat,
		})
	}
	e.summary = s
	return s, nil
}

// ResetAgentState zeroes every player's AI-mutable fields.
func (e *Engine) ResetAgentState() {
	for _, p := range e.players {
		p.ResetAIState()
	}
}

// ResetGameState returns the table to Idle for a new game with fresh stacks.
func (e *Engine) ResetGameState() {
	e.state.Reset()
	e.vault.Reset()
	e.trial = nil
	e.auction = nil
	e.summary = nil
	e.lastPot = 0
	e.firstActor = 0
	e.gameID = uuid.NewString()
	for _, p := range e.players {
		p.Chips = e.cfg.Table.InitialChips
		p.Alive = p.Chips > 0
		p.Folded = false
		p.AllIn = false
		p.HasLooked = false
		p.Acted = false
		p.Bet = 0
		p.Committed = 0
		p.Hole = [domain.HoleCardCount]domain.Card{}
	}
}

func (e *Engine) aliveCount() int {
	n := 0
	for _, p := range e.players {
		if p.Alive {
			n++
		}
	}
	return n
}

func (e *Engine) nextAliveSeat(from int) int {
	n := len(e.players)
	for i := 1; i <= n; i++ {
		seat := (from + i) % n
		if e.players[seat].Alive {
			return seat
		}
	}
	return from
}

// actingOrder lists every seat starting with the first actor of the hand.
func (e *Engine) actingOrder() []*domain.Player {
	n := len(e.players)
	out := make([]*domain.Player, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, e.players[(e.firstActor+i)%n])
	}
	return out
}

// actingRank orders seats by how early they act this hand.
func (e *Engine) actingRank(seat int) int {
	n := len(e.players)
	return (seat - e.firstActor + n) % n
}

func sortedSeats(m map[int]int64) []int {
	seats := make([]int, 0, len(m))
	for seat := range m {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	return seats
}
