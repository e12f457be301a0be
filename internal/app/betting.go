package app

import (
	"fmt"

	"zhajinhua/internal/domain"
)

// ActivePlayer returns the player whose betting decision is pending.
func (e *Engine) ActivePlayer() (*domain.Player, bool) {
	if e.state.Phase != domain.PhaseBetting || e.state.ActivePlayerIndex < 0 {
		return nil, false
	}
	return e.players[e.state.ActivePlayerIndex], true
}

func (e *Engine) isActive(p *domain.Player) bool {
	active, ok := e.ActivePlayer()
	return ok && active.ID == p.ID
}

// ToCall is what p must add to match the current bet.
func (e *Engine) ToCall(p *domain.Player) int64 {
	if owed := e.state.CurrentBet - p.Bet; owed > 0 {
		return owed
	}
	return 0
}

func (e *Engine) minRaise() int64 {
	return max(1, e.cfg.Table.MinRaise)
}

// CompareCost is the call plus a stake proportional to the current pot.
func (e *Engine) CompareCost(p *domain.Player) int64 {
	stake := (e.state.TotalStake()*e.cfg.Table.CompareStakePercent + 99) / 100
	return e.ToCall(p) + stake
}

// AccuseFee is the fee an accuser pays into the pot.
func (e *Engine) AccuseFee(p *domain.Player) int64 {
	return max(e.cfg.Table.AccuseMinFee, e.ToCall(p)*e.cfg.Table.AccuseFeeMultiplier)
}

// AvailableActions lists the legal actions for playerID. It is empty whenever the
// player has no decision to make.
func (e *Engine) AvailableActions(playerID string) []domain.LegalAction {
	p, ok := e.Player(playerID)
	if !ok {
		return nil
	}
	if e.auction != nil {
		return e.auctionActions(p)
	}
	if e.state.Phase != domain.PhaseBetting || e.trial != nil || !e.isActive(p) {
		return nil
	}

	toCall := e.ToCall(p)
	legal := []domain.LegalAction{
		{Kind: domain.ActionFold},
		{Kind: domain.ActionCall, Cost: min(toCall, p.Chips)},
	}
	if maxRaise := p.Chips - toCall; maxRaise >= e.minRaise() {
		legal = append(legal, domain.LegalAction{Kind: domain.ActionRaise, MinAmount: e.minRaise(), MaxAmount: maxRaise})
	}
	if !p.HasLooked {
		legal = append(legal, domain.LegalAction{Kind: domain.ActionLook})
	}

	if e.state.RoundIndex >= e.cfg.Table.MinBettingRounds {
		if cost := e.CompareCost(p); p.HasLooked && cost <= p.Chips {
			var targets []string
			for _, other := range e.players {
				if other.ID != p.ID && other.InHand() {
					targets = append(targets, other.ID)
				}
			}
			if len(targets) > 0 {
				legal = append(legal, domain.LegalAction{Kind: domain.ActionCompare, Cost: cost, Targets: targets})
			}
		}
		if fee := e.AccuseFee(p); e.cfg.Table.AccuseFeeMultiplier > 0 && fee <= p.Chips {
			var targets []string
			for _, other := range e.players {
				if other.ID != p.ID && other.Alive {
					targets = append(targets, other.ID)
				}
			}
			if len(targets) >= 3 {
				legal = append(legal, domain.LegalAction{Kind: domain.ActionAccuse, Cost: fee, Targets: targets})
			}
		}
	}

	if b := e.cfg.Bribe; b.Enabled && p.HasItem(b.RequiredItem) && p.Chips >= max(1, b.MinAmount) {
		legal = append(legal, domain.LegalAction{Kind: domain.ActionBribe, MinAmount: max(1, b.MinAmount), MaxAmount: p.Chips})
	}
	return legal
}

// ApplyAction validates an action against AvailableActions and applies it. A
// rejected action returns a *ValidationError and leaves the state untouched.
func (e *Engine) ApplyAction(playerID string, action domain.Action) ([]Event, error) {
	p, ok := e.Player(playerID)
	if !ok {
		return nil, invalid(playerID, action.Kind, ErrUnknownPlayer)
	}
	if e.auction != nil {
		return e.applyAuctionAction(p, action)
	}
	if e.state.Phase != domain.PhaseBetting {
		return nil, invalid(playerID, action.Kind, ErrWrongPhase)
	}
	if e.trial != nil {
		return nil, invalid(playerID, action.Kind, ErrTrialPending)
	}
	if !e.isActive(p) {
		return nil, invalid(playerID, action.Kind, ErrNotActivePlayer)
	}
	la, ok := domain.FindLegal(e.AvailableActions(playerID), action.Kind)
	if !ok {
		return nil, invalid(playerID, action.Kind, e.unavailableReason(p, action.Kind))
	}

	var events []Event
	switch action.Kind {
	case domain.ActionFold:
		events = e.fold(p)

	case domain.ActionCall:
		paid := e.pay(p, la.Cost)
		p.Bet += paid
		p.Acted = true
		verb := "calls"
		if paid == 0 {
			verb = "checks"
		} else if p.AllIn {
			verb = "calls all-in"
		}
		events = append(events, e.public(EventPlayerCalled, p.ID, fmt.Sprintf("%s %s %d", p.Name, verb, paid), map[string]any{
			"amount": paid,
			"all_in": p.AllIn,
			"pot":    e.state.Pot,
		}))

	case domain.ActionRaise:
		if action.Amount > la.MaxAmount {
			return nil, invalid(playerID, action.Kind, ErrInsufficientChips)
		}
		if action.Amount < la.MinAmount {
			return nil, invalid(playerID, action.Kind, fmt.Errorf("raise %d below minimum %d: %w", action.Amount, la.MinAmount, ErrIllegalAction))
		}
		target := e.state.CurrentBet + action.Amount
		paid := e.pay(p, target-p.Bet)
		p.Bet += paid
		e.state.CurrentBet = target
		for _, other := range e.players {
			other.Acted = false
		}
		p.Acted = true
		events = append(events, e.public(EventPlayerRaised, p.ID, fmt.Sprintf("%s raises by %d to %d", p.Name, action.Amount, target), map[string]any{
			"amount":      action.Amount,
			"current_bet": target,
			"all_in":      p.AllIn,
			"pot":         e.state.Pot,
		}))

	case domain.ActionLook:
		p.HasLooked = true
		p.Experience++
		e.state.DecisionSeq++
		return []Event{e.public(EventPlayerLooked, p.ID, fmt.Sprintf("%s looks at their cards", p.Name), nil)}, nil

	case domain.ActionCompare:
		if !contains(la.Targets, action.Target) {
			return nil, invalid(playerID, action.Kind, fmt.Errorf("cannot compare with %q: %w", action.Target, ErrIllegalAction))
		}
		target, _ := e.Player(action.Target)
		events = e.compare(p, target, la.Cost)

	case domain.ActionAccuse:
		opened, err := e.accuse(p, action, la)
		if err != nil {
			return nil, err
		}
		p.Experience++
		e.state.DecisionSeq++
		return opened, nil

	case domain.ActionBribe:
		if action.Amount < la.MinAmount || action.Amount > la.MaxAmount {
			return nil, invalid(playerID, action.Kind, fmt.Errorf("bribe %d outside [%d, %d]: %w", action.Amount, la.MinAmount, la.MaxAmount, ErrIllegalAction))
		}
		p.Experience++
		e.state.DecisionSeq++
		return e.bribe(p, action.Amount), nil

	default:
		return nil, invalid(playerID, action.Kind, ErrIllegalAction)
	}

	p.Experience++
	e.state.DecisionSeq++
	return append(events, e.advanceFrom(p.Seat)...), nil
}

func (e *Engine) unavailableReason(p *domain.Player, kind domain.ActionKind) error {
	switch kind {
	case domain.ActionRaise:
		if p.Chips-e.ToCall(p) < e.minRaise() {
			return ErrInsufficientChips
		}
	case domain.ActionCompare:
		if p.HasLooked && e.state.RoundIndex >= e.cfg.Table.MinBettingRounds && e.CompareCost(p) > p.Chips {
			return ErrInsufficientChips
		}
	case domain.ActionAccuse:
		if e.state.RoundIndex >= e.cfg.Table.MinBettingRounds && e.AccuseFee(p) > p.Chips {
			return ErrInsufficientChips
		}
	}
	return ErrIllegalAction
}

// ResolveBettingRound closes a round once every active player has matched the
// current bet or folded. After the last round the hand moves to Showdown.
func (e *Engine) ResolveBettingRound() ([]Event, error) {
	if e.state.Phase != domain.PhaseBetting {
		return nil, invalid("", "", ErrWrongPhase)
	}
	if e.trial != nil {
		return nil, invalid("", "", ErrTrialPending)
	}
	if !e.roundComplete() {
		return nil, invalid("", "", ErrRoundIncomplete)
	}
	e.state.DecisionSeq++

	if e.state.RoundIndex+1 >= e.cfg.Table.MaxBettingRounds || e.canActCount() <= 1 {
		e.state.Phase = domain.PhaseShowdown
		e.state.ActivePlayerIndex = -1
		return []Event{e.public(EventShowdownStarted, "", "Showdown", map[string]any{
			"pot":        e.state.Pot,
			"dead_money": e.state.DeadMoney,
		})}, nil
	}

	e.state.RoundIndex++
	for _, p := range e.players {
		p.Acted = false
	}
	events := []Event{e.public(EventRoundStarted, "", fmt.Sprintf("Betting round %d", e.state.RoundIndex+1), map[string]any{
		"round": e.state.RoundIndex,
	})}
	return append(events, e.advanceFrom(e.firstActor-1)...), nil
}

// advanceFrom hands the turn to the next seat after seat that still owes a
// decision, closing the round or the hand when nobody does.
func (e *Engine) advanceFrom(seat int) []Event {
	if winner, ok := e.soleSurvivor(); ok {
		return e.finishHand(map[int]int64{winner.Seat: e.state.TotalStake()}, winner.Seat)
	}
	if e.roundComplete() {
		events, _ := e.ResolveBettingRound()
		return events
	}
	n := len(e.players)
	for i := 1; i <= n; i++ {
		cand := e.players[((seat+i)%n+n)%n]
		if e.needsAction(cand) {
			e.state.ActivePlayerIndex = cand.Seat
			return nil
		}
	}
	return nil
}

func (e *Engine) needsAction(p *domain.Player) bool {
	return p.CanAct() && (!p.Acted || p.Bet < e.state.CurrentBet)
}

func (e *Engine) roundComplete() bool {
	var actors []*domain.Player
	for _, p := range e.players {
		if p.CanAct() {
			actors = append(actors, p)
		}
	}
	if len(actors) == 0 {
		return true
	}
	if len(actors) == 1 && actors[0].Bet >= e.state.CurrentBet {
		return true
	}
	for _, p := range actors {
		if e.needsAction(p) {
			return false
		}
	}
	return true
}

func (e *Engine) canActCount() int {
	n := 0
	for _, p := range e.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

func (e *Engine) soleSurvivor() (*domain.Player, bool) {
	var last *domain.Player
	for _, p := range e.players {
		if p.InHand() {
			if last != nil {
				return nil, false
			}
			last = p
		}
	}
	return last, last != nil
}

// pay moves up to amount from the stack into the pot and returns what was paid.
func (e *Engine) pay(p *domain.Player, amount int64) int64 {
	amount = min(amount, p.Chips)
	p.Chips -= amount
	p.Committed += amount
	e.state.Pot += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
	return amount
}

func (e *Engine) fold(p *domain.Player) []Event {
	p.Folded = true
	e.state.Pot -= p.Committed
	e.state.DeadMoney += p.Committed
	return []Event{e.public(EventPlayerFolded, p.ID, fmt.Sprintf("%s folds", p.Name), map[string]any{
		"committed": p.Committed,
		"pot":       e.state.Pot,
	})}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
