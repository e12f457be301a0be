package brain

import (
	"testing"

	"zhajinhua/internal/app"
)

func table(hand int, self app.SeatView, seats ...app.SeatView) app.TableView {
	v := app.TableView{HandCount: hand}
	v.Self.SeatView = self
	v.Seats = append([]app.SeatView{self}, seats...)
	for _, s := range v.Seats {
		v.CurrentBet = max(v.CurrentBet, s.Bet)
	}
	return v
}

func seat(id string, bet int64) app.SeatView {
	return app.SeatView{ID: id, Alive: true, Bet: bet}
}

func TestObserveCountsRaisesAndCalls(t *testing.T) {
	m := NewMemory()
	me := seat("me", 0)

	m.Observe(table(1, me, seat("a", 0), seat("b", 0)))

	// a raises to 20 and b follows in the same observation.
	m.Observe(table(1, me, seat("a", 20), seat("b", 20)))
	if got := m.Profile("a").Raises; got != 1 {
		t.Fatalf("a raises = %d, want 1", got)
	}

	// I call, then a raises again and b folds.
	me.Bet = 20
	folded := seat("b", 20)
	folded.Folded = true
	m.Observe(table(1, me, seat("a", 40), folded))

	a, b := m.Profile("a"), m.Profile("b")
	if a.Raises != 2 || a.HandRaises != 2 {
		t.Fatalf("a raises = %d/%d, want 2/2", a.Raises, a.HandRaises)
	}
	if a.BlindRaises != 2 {
		t.Fatalf("a blind raises = %d, want 2", a.BlindRaises)
	}
	if b.Folds != 1 || !b.Folded {
		t.Fatalf("b folds = %d folded=%v, want 1 true", b.Folds, b.Folded)
	}
	if m.Decisions != 3 {
		t.Fatalf("decisions = %d, want 3", m.Decisions)
	}
}

func TestObserveCallsAfterOwnRaise(t *testing.T) {
	m := NewMemory()
	m.Observe(table(1, seat("me", 0), seat("a", 0)))

	// I raised to 30 and a matched it.
	m.Observe(table(1, seat("me", 30), seat("a", 30)))
	a := m.Profile("a")
	if a.Calls != 1 || a.Raises != 0 {
		t.Fatalf("a calls/raises = %d/%d, want 1/0", a.Calls, a.Raises)
	}
}

func TestObserveNewHandResetsHandState(t *testing.T) {
	m := NewMemory()
	m.Observe(table(1, seat("me", 0), seat("a", 50)))
	m.Observe(table(2, seat("me", 0), seat("a", 0)))

	a := m.Profile("a")
	if a.HandRaises != 0 || a.LastBet != 0 {
		t.Fatalf("hand state not reset: %+v", a)
	}
	if a.Hands != 2 {
		t.Fatalf("hands = %d, want 2", a.Hands)
	}
	if a.Raises != 1 {
		t.Fatalf("raises = %d, want 1 kept across hands", a.Raises)
	}
}

func TestEstimatorDiscountsManiacs(t *testing.T) {
	m := NewMemory()
	tight := m.Profile("tight")
	tight.Calls, tight.Raises = 10, 1
	tight.Looked, tight.HandRaises = true, 2

	maniac := m.Profile("maniac")
	maniac.Calls, maniac.Raises = 1, 10
	maniac.Looked, maniac.HandRaises = true, 2

	e := NewEstimator(m)
	if e.OpponentStrength("tight") <= e.OpponentStrength("maniac") {
		t.Fatalf("tight %.2f <= maniac %.2f", e.OpponentStrength("tight"), e.OpponentStrength("maniac"))
	}
	if got := e.OpponentStrength("stranger"); got != 0.5 {
		t.Fatalf("unknown strength = %v, want 0.5", got)
	}
	if id, _ := e.Weakest([]string{"tight", "maniac"}); id != "maniac" {
		t.Fatalf("Weakest = %q, want maniac", id)
	}

	v := table(1, seat("me", 0), app.SeatView{ID: "tight", Alive: true}, app.SeatView{ID: "maniac", Alive: true})
	if id, _ := e.Threat(v); id != "tight" {
		t.Fatalf("Threat = %q, want tight", id)
	}
	if lo, hi := e.WinProbability(0.2, v), e.WinProbability(0.9, v); lo >= hi {
		t.Fatalf("WinProbability not monotonic: %v >= %v", lo, hi)
	}
}
