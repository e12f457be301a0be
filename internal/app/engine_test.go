package app

import (
	"errors"
	"math/rand"
	"testing"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

func card(r domain.Rank, s domain.Suit) domain.Card {
	return domain.Card{Rank: r, Suit: s}
}

// stacked deals the given hands first, in acting order, then the rest of a fresh deck.
func stacked(hands ...[3]domain.Card) func() []domain.Card {
	return func() []domain.Card {
		used := make(map[domain.Card]bool)
		var deck []domain.Card
		for _, h := range hands {
			for _, c := range h {
				used[c] = true
				deck = append(deck, c)
			}
		}
		for _, c := range domain.NewDeck() {
			if !used[c] {
				deck = append(deck, c)
			}
		}
		return deck
	}
}

var (
	pairKings  = [3]domain.Card{card(11, domain.SuitSpades), card(11, domain.SuitHearts), card(2, domain.SuitClubs)}
	pairKings2 = [3]domain.Card{card(11, domain.SuitClubs), card(11, domain.SuitDiamonds), card(2, domain.SuitDiamonds)}
	highAce    = [3]domain.Card{card(12, domain.SuitSpades), card(10, domain.SuitHearts), card(7, domain.SuitDiamonds)}
	tripSevens = [3]domain.Card{card(5, domain.SuitSpades), card(5, domain.SuitHearts), card(5, domain.SuitClubs)}
	pairQueens = [3]domain.Card{card(10, domain.SuitSpades), card(10, domain.SuitDiamonds), card(1, domain.SuitHearts)}
	highJack   = [3]domain.Card{card(12, domain.SuitClubs), card(9, domain.SuitHearts), card(6, domain.SuitDiamonds)}
)

func testConfig() config.GameConfig {
	cfg := config.Default()
	cfg.Table.BaseBet = 0
	cfg.Table.MaxBettingRounds = 1
	cfg.Auction.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg config.GameConfig, n int, opts ...Option) *Engine {
	t.Helper()
	seats := make([]Seat, n)
	names := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	for i := range seats {
		seats[i] = Seat{ID: names[i], Name: names[i]}
	}
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	e, err := NewEngine(cfg, seats, eventlog.New(), noopLogger{}, opts...)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return e
}

func mustStart(t *testing.T, e *Engine) []Event {
	t.Helper()
	events, err := e.StartHand()
	if err != nil {
		t.Fatalf("StartHand error: %v", err)
	}
	return events
}

func mustApply(t *testing.T, e *Engine, playerID string, action domain.Action) []Event {
	t.Helper()
	events, err := e.ApplyAction(playerID, action)
	if err != nil {
		t.Fatalf("ApplyAction(%s, %s) error: %v", playerID, action.Kind, err)
	}
	return events
}

func chips(e *Engine, id string) int64 {
	p, _ := e.Player(id)
	return p.Chips
}

func conserved(e *Engine) int64 {
	total := e.state.Pot + e.state.DeadMoney
	for _, p := range e.players {
		total += p.Chips
	}
	return total
}

func hasKind(events []Event, kind EventKind) bool {
	for _, ev := range events {
		if ev.Kind == string(kind) {
			return true
		}
	}
	return false
}

func TestPairBeatsHighCardHeadsUp(t *testing.T) {
	e := newTestEngine(t, testConfig(), 2, WithDeck(stacked(pairKings, highAce)))
	mustStart(t, e)

	if active, _ := e.ActivePlayer(); active.ID != "p1" {
		t.Fatalf("active = %s, want p1", active.ID)
	}
	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 20})
	events := mustApply(t, e, "p2", domain.Action{Kind: domain.ActionCall})
	if e.Phase() != domain.PhaseShowdown {
		t.Fatalf("phase = %s, want showdown", e.Phase())
	}
	if !hasKind(events, EventShowdownStarted) {
		t.Fatalf("expected showdown_started event")
	}
	if e.State().Pot != 40 {
		t.Fatalf("pot = %d, want 40", e.State().Pot)
	}

	if _, err := e.EvaluateShowdown(); err != nil {
		t.Fatalf("EvaluateShowdown error: %v", err)
	}
	if got := chips(e, "p1"); got != 320 {
		t.Fatalf("p1 chips = %d, want 320", got)
	}
	if got := chips(e, "p2"); got != 280 {
		t.Fatalf("p2 chips = %d, want 280", got)
	}
	st := e.State()
	if st.Phase != domain.PhaseHandComplete || st.Pot != 0 || st.LastWinnerSeat != 0 {
		t.Fatalf("state = %+v, want hand complete with empty pot won by seat 0", st)
	}
}

func TestFoldEndsHandWithoutShowdown(t *testing.T) {
	cfg := testConfig()
	cfg.Table.BaseBet = 10
	e := newTestEngine(t, cfg, 2, WithDeck(stacked(highAce, pairKings)))
	mustStart(t, e)
	if e.State().Pot != 20 {
		t.Fatalf("pot after antes = %d, want 20", e.State().Pot)
	}

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 20})
	events := mustApply(t, e, "p2", domain.Action{Kind: domain.ActionFold})
	if hasKind(events, EventShowdown) {
		t.Fatalf("uncontested hand must not reveal cards")
	}
	if e.Phase() != domain.PhaseHandComplete {
		t.Fatalf("phase = %s, want hand_complete", e.Phase())
	}
	if chips(e, "p1") != 310 || chips(e, "p2") != 290 {
		t.Fatalf("chips = %d/%d, want 310/290", chips(e, "p1"), chips(e, "p2"))
	}
}

func TestApplyActionRejectsWithoutMutation(t *testing.T) {
	e := newTestEngine(t, testConfig(), 3)
	mustStart(t, e)
	before := e.State()

	tests := []struct {
		name   string
		player string
		action domain.Action
		want   error
	}{
		{"not active", "p2", domain.Action{Kind: domain.ActionCall}, ErrNotActivePlayer},
		{"unknown player", "ghost", domain.Action{Kind: domain.ActionCall}, ErrUnknownPlayer},
		{"raise below minimum", "p1", domain.Action{Kind: domain.ActionRaise, Amount: 1}, ErrIllegalAction},
		{"raise above stack", "p1", domain.Action{Kind: domain.ActionRaise, Amount: 1000}, ErrInsufficientChips},
		{"compare in first round", "p1", domain.Action{Kind: domain.ActionCompare, Target: "p2"}, ErrIllegalAction},
		{"bid outside auction", "p1", domain.Action{Kind: domain.ActionBid, Amount: 5}, ErrIllegalAction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.ApplyAction(tc.player, tc.action)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %T, want *ValidationError", err)
			}
			if e.State() != before {
				t.Fatalf("state changed: %+v, want %+v", e.State(), before)
			}
		})
	}
}

func TestLookKeepsTurnAndRevealsCardsToSelf(t *testing.T) {
	e := newTestEngine(t, testConfig(), 2, WithDeck(stacked(pairKings, highAce)))
	mustStart(t, e)

	view, err := e.View("p1")
	if err != nil {
		t.Fatalf("View error: %v", err)
	}
	if len(view.Self.Cards) != 0 {
		t.Fatalf("cards visible before look: %v", view.Self.Cards)
	}

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionLook})
	if active, _ := e.ActivePlayer(); active.ID != "p1" {
		t.Fatalf("active after look = %s, want p1", active.ID)
	}
	if _, ok := domain.FindLegal(e.AvailableActions("p1"), domain.ActionLook); ok {
		t.Fatalf("look offered twice")
	}
	view, _ = e.View("p1")
	if len(view.Self.Cards) != 3 || view.Self.Category != domain.Pair.String() {
		t.Fatalf("self view = %+v, want three cards of a pair", view.Self)
	}
	other, _ := e.View("p2")
	if len(other.Self.Cards) != 0 {
		t.Fatalf("p2 sees cards without looking")
	}
}

func TestSpectatorViewHidesPrivateState(t *testing.T) {
	e := newTestEngine(t, testConfig(), 3, WithDeck(stacked(pairKings, highAce, tripSevens)))
	mustStart(t, e)
	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionLook})

	v := e.SpectatorView()
	if v.Phase != domain.PhaseBetting || len(v.Seats) != 3 {
		t.Fatalf("view = phase %s with %d seats, want betting with 3", v.Phase, len(v.Seats))
	}
	if !v.Seats[0].HasLooked {
		t.Fatalf("seat 0 look not visible to spectators")
	}
	if len(v.Self.Cards) != 0 || v.Self.ID != "" || len(v.Self.Legal) != 0 {
		t.Fatalf("spectator view leaks self section: %+v", v.Self)
	}
}

func TestCompareInitiatorLoses(t *testing.T) {
	cfg := testConfig()
	cfg.Table.BaseBet = 10
	cfg.Table.MaxBettingRounds = 3
	e := newTestEngine(t, cfg, 2, WithDeck(stacked(highAce, pairKings)))
	mustStart(t, e)

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionCall})
	mustApply(t, e, "p2", domain.Action{Kind: domain.ActionCall})
	if e.State().RoundIndex != 1 {
		t.Fatalf("round = %d, want 1", e.State().RoundIndex)
	}
	if _, ok := domain.FindLegal(e.AvailableActions("p1"), domain.ActionCompare); ok {
		t.Fatalf("compare offered before looking")
	}

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionLook})
	la, ok := domain.FindLegal(e.AvailableActions("p1"), domain.ActionCompare)
	if !ok {
		t.Fatalf("compare not offered after looking")
	}
	if la.Cost != 10 {
		t.Fatalf("compare cost = %d, want 10", la.Cost)
	}

	events := mustApply(t, e, "p1", domain.Action{Kind: domain.ActionCompare, Target: "p2"})
	var reveal *Event
	for i := range events {
		if events[i].Kind == string(EventCompareReveal) {
			reveal = &events[i]
		}
	}
	if reveal == nil || reveal.Category != eventlog.CategorySecret || !reveal.Involves("p2") {
		t.Fatalf("compare reveal = %+v, want secret entry for both players", reveal)
	}
	if e.Phase() != domain.PhaseHandComplete {
		t.Fatalf("phase = %s, want hand_complete", e.Phase())
	}
	if chips(e, "p1") != 280 || chips(e, "p2") != 320 {
		t.Fatalf("chips = %d/%d, want 280/320", chips(e, "p1"), chips(e, "p2"))
	}
}

func TestTiedWinnersSplitWithRemainderToEarliestActor(t *testing.T) {
	e := newTestEngine(t, testConfig(), 3, WithDeck(stacked(pairKings, pairKings2, highAce)))
	mustStart(t, e)

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 15})
	mustApply(t, e, "p2", domain.Action{Kind: domain.ActionCall})
	mustApply(t, e, "p3", domain.Action{Kind: domain.ActionCall})
	if _, err := e.EvaluateShowdown(); err != nil {
		t.Fatalf("EvaluateShowdown error: %v", err)
	}

	want := map[string]int64{"p1": 308, "p2": 307, "p3": 285}
	for id, w := range want {
		if got := chips(e, id); got != w {
			t.Fatalf("%s chips = %d, want %d", id, got, w)
		}
	}
}

func TestAllInBuildsSidePot(t *testing.T) {
	e := newTestEngine(t, testConfig(), 3, WithDeck(stacked(tripSevens, pairQueens, highJack)))
	e.players[0].Chips = 50
	mustStart(t, e)

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 50})
	if !e.players[0].AllIn {
		t.Fatalf("p1 should be all-in")
	}
	mustApply(t, e, "p2", domain.Action{Kind: domain.ActionRaise, Amount: 50})
	mustApply(t, e, "p3", domain.Action{Kind: domain.ActionCall})
	if e.Phase() != domain.PhaseShowdown {
		t.Fatalf("phase = %s, want showdown", e.Phase())
	}
	if _, err := e.EvaluateShowdown(); err != nil {
		t.Fatalf("EvaluateShowdown error: %v", err)
	}

	want := map[string]int64{"p1": 150, "p2": 300, "p3": 200}
	for id, w := range want {
		if got := chips(e, id); got != w {
			t.Fatalf("%s chips = %d, want %d", id, got, w)
		}
	}
}

// houseFlow sums the chips events move between players and the house: bribes
// and auction payments leave the table, revivals enter it.
func houseFlow(events []Event) int64 {
	var flow int64
	for _, ev := range events {
		switch EventKind(ev.Kind) {
		case EventBribe, EventAuctionClosed:
			if amount, ok := ev.Fields["amount"].(int64); ok {
				flow -= amount
			}
		case EventPlayerRevived:
			if amount, ok := ev.Fields["chips"].(int64); ok {
				flow += amount
			}
		}
	}
	return flow
}

// randomPlayer drives an engine with random legal moves. With sideGames set it
// also accuses, cheats, borrows, bribes and bids.
type randomPlayer struct {
	t         *testing.T
	e         *Engine
	rng       *rand.Rand
	sideGames bool
}

func (r *randomPlayer) step() []Event {
	t, e, rng := r.t, r.e, r.rng

	if bidder, ok := e.AuctionBidder(); ok {
		la, canBid := domain.FindLegal(e.AvailableActions(bidder.ID), domain.ActionBid)
		if !canBid || rng.Intn(2) == 0 {
			return mustApply(t, e, bidder.ID, domain.Action{Kind: domain.ActionPass})
		}
		amount := la.MinAmount + rng.Int63n(min(la.MaxAmount-la.MinAmount+1, 25))
		return mustApply(t, e, bidder.ID, domain.Action{Kind: domain.ActionBid, Amount: amount})
	}

	switch e.Phase() {
	case domain.PhaseIdle, domain.PhaseHandComplete:
		return mustStart(t, e)
	case domain.PhaseShowdown:
		events, err := e.EvaluateShowdown()
		if err != nil {
			t.Fatalf("EvaluateShowdown error: %v", err)
		}
		return events
	case domain.PhaseBetting:
	default:
		t.Fatalf("unexpected phase %s", e.Phase())
	}

	if trial, ok := e.PendingTrial(); ok {
		verdicts := []domain.Verdict{domain.VerdictGuilty, domain.VerdictNotGuilty, domain.VerdictAbstain}
		votes := make(map[string]domain.Verdict, len(trial.Jurors))
		for _, juror := range trial.Jurors {
			votes[juror] = verdicts[rng.Intn(len(verdicts))]
		}
		events, err := e.ResolveTrial(votes)
		if err != nil {
			t.Fatalf("ResolveTrial error: %v", err)
		}
		return events
	}

	p, ok := e.ActivePlayer()
	if !ok {
		t.Fatalf("betting without an active player")
	}

	if r.sideGames {
		switch rng.Intn(12) {
		case 0:
			move := domain.CheatMove{Kind: domain.CheatSwapSuit, CardIndex: rng.Intn(domain.HoleCardCount)}
			move.NewSuit = (p.Hole[move.CardIndex].Suit + 1) % 4
			_, events, err := e.AttemptCheat(p.ID, move)
			if err != nil && !errors.Is(err, ErrCheatBlocked) {
				t.Fatalf("AttemptCheat error: %v", err)
			}
			return events
		case 1:
			_, events, err := e.RequestLoan(p.ID, vault.Request{Amount: 20 + rng.Int63n(80)})
			var econ *vault.EconomicError
			if err != nil && !errors.As(err, &econ) {
				t.Fatalf("RequestLoan error: %v", err)
			}
			return events
		}
	}

	var options []domain.LegalAction
	for _, la := range e.AvailableActions(p.ID) {
		if la.Kind != domain.ActionAccuse || r.sideGames {
			options = append(options, la)
		}
	}
	la := options[rng.Intn(len(options))]
	action := domain.Action{Kind: la.Kind}
	switch la.Kind {
	case domain.ActionRaise:
		action.Amount = la.MinAmount + rng.Int63n(min(la.MaxAmount-la.MinAmount+1, 40))
	case domain.ActionBribe:
		action.Amount = la.MinAmount + rng.Int63n(min(la.MaxAmount-la.MinAmount+1, 20))
	case domain.ActionCompare:
		action.Target = la.Targets[rng.Intn(len(la.Targets))]
	case domain.ActionAccuse:
		picks := rng.Perm(len(la.Targets))
		action.Target, action.SecondTarget = la.Targets[picks[0]], la.Targets[picks[1]]
	}

	events, err := e.ApplyAction(p.ID, action)
	if errors.Is(err, ErrNoJurors) {
		return mustApply(t, e, p.ID, domain.Action{Kind: domain.ActionCall})
	}
	if err != nil {
		t.Fatalf("ApplyAction(%s, %s) error: %v", p.ID, action.Kind, err)
	}
	return events
}

func TestRandomPlayConservesChips(t *testing.T) {
	tests := []struct {
		name      string
		players   int
		sideGames bool
		seeds     int64
	}{
		{"betting only", 4, false, 5},
		{"with side games", 5, true, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(1); seed <= tt.seeds; seed++ {
				cfg := config.Default()
				cfg.Table.MaxHands = 30
				cfg.Auction.Enabled = tt.sideGames
				cfg.Cheat.Enabled = tt.sideGames
				cfg.Bribe.Enabled = tt.sideGames
				if !tt.sideGames {
					cfg.Table.AccuseFeeMultiplier = 0
				}
				e := newTestEngine(t, cfg, tt.players, WithRand(rand.New(rand.NewSource(seed))))
				r := &randomPlayer{t: t, e: e, rng: rand.New(rand.NewSource(seed * 7)), sideGames: tt.sideGames}

				start := conserved(e)
				var house int64
				for step := 0; e.Phase() != domain.PhaseGameOver; step++ {
					if step > 20000 {
						t.Fatalf("seed %d: game did not finish, phase %s", seed, e.Phase())
					}
					house += houseFlow(r.step())

					issued, recovered := e.Vault().Balance()
					if got, want := conserved(e), start+house+issued-recovered; got != want {
						t.Fatalf("seed %d step %d: chips in play = %d, want %d", seed, step, got, want)
					}
					if e.Phase() != domain.PhaseBetting {
						continue
					}
					var committed int64
					for _, p := range e.players {
						if p.InHand() {
							committed += p.Committed
						}
					}
					if committed != e.state.Pot {
						t.Fatalf("seed %d step %d: pot = %d, want committed %d", seed, step, e.state.Pot, committed)
					}
				}

				s, err := e.FinalSummary()
				if err != nil {
					t.Fatalf("seed %d: FinalSummary error: %v", seed, err)
				}
				if s.TotalRounds != e.State().HandCount {
					t.Fatalf("seed %d: total rounds = %d, want %d", seed, s.TotalRounds, e.State().HandCount)
				}
			}
		})
	}
}

func TestDetectedCheatForfeitGoesToShowdownWinner(t *testing.T) {
	cfg := testConfig()
	cfg.Cheat.MinDetection, cfg.Cheat.MaxDetection = 1, 1
	e := newTestEngine(t, cfg, 3, WithDeck(stacked(pairKings, highAce, highJack)))
	mustStart(t, e)
	total := conserved(e)

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 20})
	mustApply(t, e, "p2", domain.Action{Kind: domain.ActionCall})
	move := domain.CheatMove{Kind: domain.CheatSwapSuit, CardIndex: 0, NewSuit: (e.players[2].Hole[0].Suit + 1) % 4}
	outcome, _, err := e.AttemptCheat("p3", move)
	if err != nil {
		t.Fatalf("AttemptCheat error: %v", err)
	}
	if !outcome.Detected {
		t.Fatalf("cheat undetected at certain detection")
	}
	if e.Phase() != domain.PhaseShowdown {
		t.Fatalf("phase = %s, want showdown", e.Phase())
	}
	if st := e.State(); st.Pot != 40 || st.DeadMoney != 300 {
		t.Fatalf("pot/dead = %d/%d, want 40/300", st.Pot, st.DeadMoney)
	}

	if _, err := e.EvaluateShowdown(); err != nil {
		t.Fatalf("EvaluateShowdown error: %v", err)
	}
	want := map[string]int64{"p1": 620, "p2": 280, "p3": 0}
	for id, w := range want {
		if got := chips(e, id); got != w {
			t.Fatalf("%s chips = %d, want %d", id, got, w)
		}
	}
	if got := conserved(e); got != total {
		t.Fatalf("chips in play = %d, want %d", got, total)
	}
}

func TestRevivalAndGameOver(t *testing.T) {
	t.Run("revive token", func(t *testing.T) {
		e := newTestEngine(t, testConfig(), 2, WithDeck(stacked(highAce, pairKings)))
		e.players[0].Chips = 10
		e.players[0].Inventory = []string{"revive_token"}
		mustStart(t, e)
		mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 10})
		mustApply(t, e, "p2", domain.Action{Kind: domain.ActionCall})
		events, err := e.EvaluateShowdown()
		if err != nil {
			t.Fatalf("EvaluateShowdown error: %v", err)
		}
		if !hasKind(events, EventPlayerRevived) {
			t.Fatalf("expected player_revived event")
		}
		p, _ := e.Player("p1")
		if !p.Alive || p.Chips != 100 || len(p.Inventory) != 0 {
			t.Fatalf("p1 = alive %v chips %d inventory %v, want revived with 100", p.Alive, p.Chips, p.Inventory)
		}
		if e.Phase() != domain.PhaseHandComplete {
			t.Fatalf("phase = %s, want hand_complete", e.Phase())
		}
	})

	t.Run("last player standing", func(t *testing.T) {
		e := newTestEngine(t, testConfig(), 2, WithDeck(stacked(highAce, pairKings)))
		e.players[0].Chips = 10
		if _, err := e.FinalSummary(); !errors.Is(err, ErrNotGameOver) {
			t.Fatalf("FinalSummary before game over err = %v, want %v", err, ErrNotGameOver)
		}
		mustStart(t, e)
		mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 10})
		mustApply(t, e, "p2", domain.Action{Kind: domain.ActionCall})
		if _, err := e.EvaluateShowdown(); err != nil {
			t.Fatalf("EvaluateShowdown error: %v", err)
		}
		if e.Phase() != domain.PhaseGameOver {
			t.Fatalf("phase = %s, want game_over", e.Phase())
		}

		first, err := e.FinalSummary()
		if err != nil {
			t.Fatalf("FinalSummary error: %v", err)
		}
		if first.WinnerID != "p2" || first.FinalPot != 20 || first.TotalRounds != 1 {
			t.Fatalf("summary = %+v, want p2 winning a pot of 20 after 1 hand", first)
		}
		if snap, _ := first.Player("p2"); snap.Chips != 310 {
			t.Fatalf("winner chips = %d, want 310", snap.Chips)
		}
		second, _ := e.FinalSummary()
		if first != second {
			t.Fatalf("FinalSummary returned a different value on second call")
		}
		if _, err := e.StartHand(); !errors.Is(err, ErrWrongPhase) {
			t.Fatalf("StartHand after game over err = %v, want %v", err, ErrWrongPhase)
		}
	})
}

func TestAccusationTrial(t *testing.T) {
	setup := func(t *testing.T) *Engine {
		cfg := testConfig()
		cfg.Table.MaxBettingRounds = 3
		e := newTestEngine(t, cfg, 4)
		mustStart(t, e)
		for _, id := range []string{"p1", "p2", "p3", "p4"} {
			mustApply(t, e, id, domain.Action{Kind: domain.ActionCall})
		}
		events := mustApply(t, e, "p1", domain.Action{Kind: domain.ActionAccuse, Target: "p2", SecondTarget: "p3"})
		if !hasKind(events, EventAccusation) {
			t.Fatalf("expected accusation event")
		}
		trial, ok := e.PendingTrial()
		if !ok || len(trial.Jurors) != 1 || trial.Jurors[0] != "p4" || trial.Fee != 10 {
			t.Fatalf("trial = %+v, want p4 as sole juror and fee 10", trial)
		}
		if _, err := e.ApplyAction("p1", domain.Action{Kind: domain.ActionCall}); !errors.Is(err, ErrTrialPending) {
			t.Fatalf("action during trial err = %v, want %v", err, ErrTrialPending)
		}
		return e
	}

	t.Run("unanimous guilty", func(t *testing.T) {
		e := setup(t)
		total := conserved(e)
		if _, err := e.ResolveTrial(map[string]domain.Verdict{"p4": domain.VerdictGuilty}); err != nil {
			t.Fatalf("ResolveTrial error: %v", err)
		}
		want := map[string]int64{"p1": 710, "p2": 0, "p3": 0, "p4": 480}
		for id, w := range want {
			if got := chips(e, id); got != w {
				t.Fatalf("%s chips = %d, want %d", id, got, w)
			}
		}
		if p, _ := e.Player("p2"); p.Alive {
			t.Fatalf("convicted player still alive")
		}
		if active, _ := e.ActivePlayer(); active.ID != "p4" {
			t.Fatalf("active = %s, want p4", active.ID)
		}
		if conserved(e) != total {
			t.Fatalf("chips in play = %d, want %d", conserved(e), total)
		}
	})

	t.Run("acquittal", func(t *testing.T) {
		e := setup(t)
		total := conserved(e)
		if _, err := e.ResolveTrial(map[string]domain.Verdict{"p4": domain.VerdictAbstain}); err != nil {
			t.Fatalf("ResolveTrial error: %v", err)
		}
		want := map[string]int64{"p1": 0, "p2": 445, "p3": 445, "p4": 300}
		for id, w := range want {
			if got := chips(e, id); got != w {
				t.Fatalf("%s chips = %d, want %d", id, got, w)
			}
		}
		if e.State().DeadMoney != 10 {
			t.Fatalf("dead money = %d, want 10", e.State().DeadMoney)
		}
		if conserved(e) != total {
			t.Fatalf("chips in play = %d, want %d", conserved(e), total)
		}
	})
}

func TestAttemptCheat(t *testing.T) {
	t.Run("undetected swap", func(t *testing.T) {
		cfg := testConfig()
		cfg.Cheat.MinDetection, cfg.Cheat.MaxDetection = 0, 0
		e := newTestEngine(t, cfg, 2, WithDeck(stacked(pairKings, highAce)))
		mustStart(t, e)

		outcome, events, err := e.AttemptCheat("p1", domain.CheatMove{Kind: domain.CheatSwapRank, CardIndex: 2, NewRank: 11})
		if err != nil {
			t.Fatalf("AttemptCheat error: %v", err)
		}
		if outcome.Detected {
			t.Fatalf("cheat detected at zero probability")
		}
		p, _ := e.Player("p1")
		if domain.Evaluate(p.Cards()).Category != domain.Trips {
			t.Fatalf("hand = %s, want a triple after the swap", domain.FormatCards(p.Cards()))
		}
		if p.Cheat.Attempts != 1 || p.Cheat.Successes != 1 || p.Experience != 3 {
			t.Fatalf("cheat stats = %+v exp %v, want 1/1 and 3 experience", p.Cheat, p.Experience)
		}
		if len(events) != 1 || events[0].Category != eventlog.CategoryCheat || events[0].Involves("p2") {
			t.Fatalf("events = %+v, want one private cheat entry", events)
		}
	})

	t.Run("caught", func(t *testing.T) {
		cfg := testConfig()
		cfg.Cheat.MinDetection, cfg.Cheat.MaxDetection = 1, 1
		e := newTestEngine(t, cfg, 3)
		mustStart(t, e)
		total := conserved(e)

		outcome, _, err := e.AttemptCheat("p1", domain.CheatMove{Kind: domain.CheatSwapSuit, CardIndex: 0, NewSuit: (e.players[0].Hole[0].Suit + 1) % 4})
		if err != nil {
			t.Fatalf("AttemptCheat error: %v", err)
		}
		if !outcome.Detected {
			t.Fatalf("cheat undetected at certain detection")
		}
		p, _ := e.Player("p1")
		if p.Alive || p.Chips != 0 {
			t.Fatalf("cheater = alive %v chips %d, want eliminated", p.Alive, p.Chips)
		}
		st := e.State()
		if st.DeadMoney != 300 || st.GlobalAlertLevel != 25 {
			t.Fatalf("state = %+v, want 300 dead money and alert 25", st)
		}
		if active, _ := e.ActivePlayer(); active.ID != "p2" {
			t.Fatalf("active = %s, want p2", active.ID)
		}
		if conserved(e) != total {
			t.Fatalf("chips in play = %d, want %d", conserved(e), total)
		}
	})

	t.Run("invalid move", func(t *testing.T) {
		e := newTestEngine(t, testConfig(), 2)
		mustStart(t, e)
		_, _, err := e.AttemptCheat("p1", domain.CheatMove{Kind: domain.CheatSwapRank, CardIndex: 5})
		if !errors.Is(err, ErrInvalidCheat) {
			t.Fatalf("err = %v, want %v", err, ErrInvalidCheat)
		}
	})
}

func TestBribeLowersAlert(t *testing.T) {
	e := newTestEngine(t, testConfig(), 2)
	e.players[0].Inventory = []string{"bribe_pass"}
	mustStart(t, e)
	e.state.GlobalAlertLevel = 40

	la, ok := domain.FindLegal(e.AvailableActions("p1"), domain.ActionBribe)
	if !ok || la.MinAmount != 10 {
		t.Fatalf("bribe legal = %+v/%v, want min 10", la, ok)
	}
	events := mustApply(t, e, "p1", domain.Action{Kind: domain.ActionBribe, Amount: 30})
	if events[0].Category != eventlog.CategoryCheat {
		t.Fatalf("bribe category = %s, want cheat", events[0].Category)
	}
	if e.State().GlobalAlertLevel != 25 {
		t.Fatalf("alert = %v, want 25", e.State().GlobalAlertLevel)
	}
	p, _ := e.Player("p1")
	if p.Chips != 270 || p.HasItem("bribe_pass") {
		t.Fatalf("p1 chips %d inventory %v, want 270 and no pass", p.Chips, p.Inventory)
	}
	if active, _ := e.ActivePlayer(); active.ID != "p1" {
		t.Fatalf("active after bribe = %s, want p1", active.ID)
	}
}

func TestAuctionBetweenHands(t *testing.T) {
	cfg := testConfig()
	cfg.Table.BaseBet = 10
	cfg.Auction.Enabled = true
	cfg.Auction.Items = []config.Item{{ID: "revive_token", Name: "Second Wind", Effect: "revive"}}
	e := newTestEngine(t, cfg, 2)
	mustStart(t, e)

	events := mustApply(t, e, "p1", domain.Action{Kind: domain.ActionFold})
	if !hasKind(events, EventAuctionOpened) {
		t.Fatalf("expected auction_opened event")
	}
	if _, err := e.StartHand(); !errors.Is(err, ErrAuctionOpen) {
		t.Fatalf("StartHand during auction err = %v, want %v", err, ErrAuctionOpen)
	}
	if bidder, _ := e.AuctionBidder(); bidder.ID != "p1" {
		t.Fatalf("bidder = %s, want p1", bidder.ID)
	}

	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionBid, Amount: 50})
	la, ok := domain.FindLegal(e.AvailableActions("p2"), domain.ActionBid)
	if !ok || la.MinAmount != 75 {
		t.Fatalf("next bid = %+v/%v, want minimum 75", la, ok)
	}
	if _, err := e.ApplyAction("p2", domain.Action{Kind: domain.ActionBid, Amount: 60}); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("low bid err = %v, want %v", err, ErrIllegalAction)
	}
	events = mustApply(t, e, "p2", domain.Action{Kind: domain.ActionPass})
	if !hasKind(events, EventAuctionClosed) {
		t.Fatalf("expected auction_closed event")
	}

	p, _ := e.Player("p1")
	if p.Chips != 240 || !p.HasItem("revive_token") {
		t.Fatalf("p1 chips %d inventory %v, want 240 with revive_token", p.Chips, p.Inventory)
	}
	mustStart(t, e)
}

func TestRequestLoanAndSecretMessage(t *testing.T) {
	e := newTestEngine(t, testConfig(), 3)
	mustStart(t, e)

	if _, _, err := e.RequestLoan("p2", vault.Request{Amount: 50}); !errors.Is(err, ErrNotActivePlayer) {
		t.Fatalf("loan off turn err = %v, want %v", err, ErrNotActivePlayer)
	}
	_, _, err := e.RequestLoan("p1", vault.Request{Amount: 50})
	var econ *vault.EconomicError
	if !errors.As(err, &econ) || !errors.Is(err, vault.ErrExperienceTooLow) {
		t.Fatalf("loan err = %v, want experience refusal", err)
	}
	if chips(e, "p1") != 300 {
		t.Fatalf("refused loan changed chips to %d", chips(e, "p1"))
	}

	events, err := e.SendSecretMessage("p1", "p3", "fold next hand and I cover you")
	if err != nil {
		t.Fatalf("SendSecretMessage error: %v", err)
	}
	if events[0].Category != eventlog.CategorySecret || !events[0].Involves("p3") || events[0].Involves("p2") {
		t.Fatalf("message = %+v, want secret entry between p1 and p3", events[0])
	}
	if p, _ := e.Player("p1"); p.Cheat.MindgameMoves != 1 {
		t.Fatalf("mindgame moves = %d, want 1", p.Cheat.MindgameMoves)
	}
}

func TestResetGameStateRestoresTable(t *testing.T) {
	e := newTestEngine(t, testConfig(), 2, WithDeck(stacked(pairKings, highAce)))
	mustStart(t, e)
	mustApply(t, e, "p1", domain.Action{Kind: domain.ActionRaise, Amount: 20})
	mustApply(t, e, "p2", domain.Action{Kind: domain.ActionFold})
	oldID := e.GameID()

	e.ResetGameState()
	if e.GameID() == oldID {
		t.Fatalf("game id not rotated")
	}
	st := e.State()
	if st.Phase != domain.PhaseIdle || st.HandCount != 0 || st.ActivePlayerIndex != -1 {
		t.Fatalf("state = %+v, want idle", st)
	}
	for _, p := range e.Players() {
		if p.Chips != 300 || !p.Alive {
			t.Fatalf("%s = chips %d alive %v, want fresh stack", p.ID, p.Chips, p.Alive)
		}
	}
}
