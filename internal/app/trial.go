package app

import (
	"fmt"

	"zhajinhua/internal/domain"
)

// Trial is an open accusation waiting for defenses and votes.
type Trial struct {
	Accuser string
	Targets [2]string
	Jurors  []string
	Fee     int64
}

// PendingTrial returns the open accusation, if any.
func (e *Engine) PendingTrial() (Trial, bool) {
	if e.trial == nil {
		return Trial{}, false
	}
	t := *e.trial
	t.Jurors = append([]string(nil), e.trial.Jurors...)
	return t, true
}

func (e *Engine) accuse(p *domain.Player, action domain.Action, la domain.LegalAction) ([]Event, error) {
	t1, t2 := action.Target, action.SecondTarget
	if t1 == t2 || !contains(la.Targets, t1) || !contains(la.Targets, t2) {
		return nil, invalid(p.ID, action.Kind, fmt.Errorf("accuse needs two distinct opponents: %w", ErrIllegalAction))
	}

	var jurors []string
	for _, other := range e.actingOrder() {
		if other.Alive && !other.AllIn && other.ID != p.ID && other.ID != t1 && other.ID != t2 {
			jurors = append(jurors, other.ID)
		}
	}
	if len(jurors) == 0 {
		return nil, invalid(p.ID, action.Kind, ErrNoJurors)
	}

	paid := e.pay(p, la.Cost)
	e.trial = &Trial{Accuser: p.ID, Targets: [2]string{t1, t2}, Jurors: jurors, Fee: paid}

	jury := make([]any, len(jurors))
	for i, id := range jurors {
		jury[i] = id
	}
	return []Event{e.public(EventAccusation, p.ID, fmt.Sprintf("%s accuses %s and %s of collusion", p.Name, t1, t2), map[string]any{
		"target":        t1,
		"second_target": t2,
		"fee":           paid,
		"jurors":        jury,
	})}, nil
}

// ResolveTrial applies the jury's votes. Only a unanimous guilty vote convicts;
// abstentions and missing votes count as not guilty.
func (e *Engine) ResolveTrial(votes map[string]domain.Verdict) ([]Event, error) {
	if e.trial == nil {
		return nil, invalid("", domain.ActionAccuse, ErrNoTrial)
	}
	t := e.trial
	e.trial = nil

	guilty := true
	for _, juror := range t.Jurors {
		if votes[juror] != domain.VerdictGuilty {
			guilty = false
			break
		}
	}

	accuser, _ := e.Player(t.Accuser)
	var events []Event
	if guilty {
		var forfeited int64
		for _, id := range t.Targets {
			target, _ := e.Player(id)
			forfeited += target.Chips
			target.Chips = 0
			events = append(events, e.eliminate(target, "convicted of collusion")...)
		}
		accuserShare := forfeited * 70 / 100
		accuser.Chips += accuserShare

		jurorSeats := make([]int, 0, len(t.Jurors))
		for _, id := range t.Jurors {
			juror, _ := e.Player(id)
			jurorSeats = append(jurorSeats, juror.Seat)
		}
		for seat, amount := range domain.SplitPot(forfeited-accuserShare, jurorSeats) {
			e.players[seat].Chips += amount
		}
		events = append(events, e.public(EventVerdict, accuser.ID, fmt.Sprintf("Guilty: %s collects %d", accuser.Name, accuserShare), map[string]any{
			"verdict":   string(domain.VerdictGuilty),
			"forfeited": forfeited,
			"accuser":   accuserShare,
		}))
	} else {
		forfeited := accuser.Chips
		accuser.Chips = 0
		events = append(events, e.eliminate(accuser, "false accusation")...)

		targetSeats := make([]int, 0, len(t.Targets))
		for _, id := range t.Targets {
			target, _ := e.Player(id)
			targetSeats = append(targetSeats, target.Seat)
		}
		for seat, amount := range domain.SplitPot(forfeited, targetSeats) {
			e.players[seat].Chips += amount
		}
		events = append(events, e.public(EventVerdict, accuser.ID, fmt.Sprintf("Not guilty: %s forfeits %d", accuser.Name, forfeited), map[string]any{
			"verdict":   string(domain.VerdictNotGuilty),
			"forfeited": forfeited,
		}))
	}

	accuser.Acted = true
	e.state.DecisionSeq++
	return append(events, e.advanceFrom(accuser.Seat)...), nil
}
