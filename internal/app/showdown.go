package app

import (
	"fmt"
	"sort"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/domain"
)

// EvaluateShowdown ranks the remaining hands and pays every side pot, smallest
// stake first. Tied winners split a pot evenly and the earliest-acting winner
// takes the remainder.
func (e *Engine) EvaluateShowdown() ([]Event, error) {
	if e.state.Phase != domain.PhaseShowdown {
		return nil, invalid("", "", ErrWrongPhase)
	}

	committed := make([]int64, len(e.players))
	eligible := make([]bool, len(e.players))
	ranks := make(map[int]domain.HandRank, len(e.players))
	reveal := make(map[string]any)
	for _, p := range e.players {
		committed[p.Seat] = p.Committed
		eligible[p.Seat] = p.InHand()
		if p.InHand() {
			ranks[p.Seat] = domain.Evaluate(p.Cards())
			reveal[p.ID] = fmt.Sprintf("%s (%s)", domain.FormatCards(p.Cards()), ranks[p.Seat].Category)
		}
	}
	events := []Event{e.public(EventShowdown, "", "Hands revealed", reveal)}

	var contenders []int
	for _, p := range e.players {
		if p.InHand() {
			contenders = append(contenders, p.Seat)
		}
	}

	pots := domain.BuildSidePots(committed, eligible)
	var potted int64
	for _, pot := range pots {
		potted += pot.Amount
	}
	if extra := e.state.TotalStake() - potted; extra > 0 {
		e.logger.Warn("EvaluateShowdown: %d chips outside the side pots join the main pot", extra)
		if len(pots) == 0 {
			pots = []domain.SidePot{{EligibleSeats: contenders}}
		}
		pots[0].Amount += extra
	}

	awards := make(map[int]int64)
	for i, pot := range pots {
		winners := e.bestSeats(pot.EligibleSeats, ranks)
		for seat, amount := range domain.SplitPot(pot.Amount, winners) {
			awards[seat] += amount
		}
		e.logger.Debug("EvaluateShowdown: pot %d of %d split between seats %v", i, pot.Amount, winners)
	}
	bestSeat := e.bestSeats(contenders, ranks)[0]

	return append(events, e.finishHand(awards, bestSeat)...), nil
}

// bestSeats returns the seats holding the strongest hand, earliest actor first.
func (e *Engine) bestSeats(seats []int, ranks map[int]domain.HandRank) []int {
	var best []int
	for _, seat := range seats {
		if len(best) == 0 {
			best = []int{seat}
			continue
		}
		switch ranks[seat].Compare(ranks[best[0]]) {
		case 1:
			best = []int{seat}
		case 0:
			best = append(best, seat)
		}
	}
	sort.Slice(best, func(i, j int) bool { return e.actingRank(best[i]) < e.actingRank(best[j]) })
	return best
}

// compare settles a head-to-head challenge. The initiator loses ties and the loser folds.
func (e *Engine) compare(p, target *domain.Player, cost int64) []Event {
	toCall := e.ToCall(p)
	paid := e.pay(p, cost)
	p.Bet += min(paid, toCall)
	p.Acted = true

	winner, loser := p, target
	if domain.Compare(p.Cards(), target.Cards()) != domain.OutcomeA {
		winner, loser = target, p
	}

	events := []Event{
		e.public(EventCompared, p.ID, fmt.Sprintf("%s challenges %s and %s wins", p.Name, target.Name, winner.Name), map[string]any{
			"target": target.ID,
			"winner": winner.ID,
			"loser":  loser.ID,
			"cost":   paid,
		}),
		e.emit(eventlog.CategorySecret, EventCompareReveal, p.ID, "compared hands", map[string]any{
			p.ID:      domain.FormatCards(p.Cards()),
			target.ID: domain.FormatCards(target.Cards()),
		}, p.ID, target.ID),
	}
	return append(events, e.fold(loser)...)
}
