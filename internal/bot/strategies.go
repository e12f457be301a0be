package bot

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"zhajinhua/internal/app"
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/bot/brain"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"
)

// HeuristicBot scores every legal action through DefaultPipeline and plays the best.
type HeuristicBot struct {
	Tuning Tuning
}

func (b *HeuristicBot) Decide(view app.TableView, mem *brain.GameMemory, persona Persona, rng *rand.Rand) Thought {
	if view.Auction != nil {
		return b.bid(view, persona)
	}
	ctx := newDecisionContext(view, mem, persona, b.Tuning, rng)
	return b.think(ctx)
}

func (b *HeuristicBot) think(ctx *DecisionContext) Thought {
	for _, rule := range DefaultPipeline {
		rule.Apply(ctx)
	}
	kind := ctx.Best()
	action := b.build(ctx, kind)

	th := Thought{Decision: ports.Decision{Action: action}}
	if ctx.View.Self.HasLooked {
		th.Reasoning = append(th.Reasoning, fmt.Sprintf("I hold %s, a %s.", strings.Join(ctx.View.Self.Cards, " "), ctx.View.Self.Category))
	}
	th.Reasoning = append(th.Reasoning, ctx.Notes...)
	th.Reasoning = append(th.Reasoning, fmt.Sprintf("Decision: %s.", kind))
	th.Decision.Reason = fmt.Sprintf("win chance %.2f, best score %.2f", ctx.WinProb, ctx.Scores[kind])

	if req := b.loan(ctx, kind); req != nil {
		th.Decision.Loan = req
		th.Reasoning = append(th.Reasoning, fmt.Sprintf("Borrowing %d from the vault to keep going.", req.Amount))
	}
	if kind == domain.ActionRaise && ctx.Persona.Style == StyleAggressive {
		th.Decision.Speech = "Let's make this interesting."
	}
	return th
}

func (b *HeuristicBot) build(ctx *DecisionContext, kind domain.ActionKind) domain.Action {
	la, _ := ctx.Legal(kind)
	action := domain.Action{Kind: kind}
	switch kind {
	case domain.ActionRaise:
		steps := 1 + int64(math.Max(0, ctx.WinProb-b.Tuning.RaiseAbove)*b.Tuning.RaiseScale)
		action.Amount = min(la.MinAmount*steps, la.MaxAmount)
	case domain.ActionCompare:
		action.Target = ctx.CompareTarget
	case domain.ActionAccuse:
		action.Target, action.SecondTarget = ctx.AccuseTargets[0], ctx.AccuseTargets[1]
	case domain.ActionBribe:
		action.Amount = la.MinAmount
	}
	return action
}

// loan asks the vault for credit when staying in the hand under pressure.
func (b *HeuristicBot) loan(ctx *DecisionContext, kind domain.ActionKind) *vault.Request {
	self := ctx.View.Self
	if b.Tuning.LoanPressure <= 0 || self.Loan != nil || self.Pressure.Value < b.Tuning.LoanPressure {
		return nil
	}
	if kind != domain.ActionCall && kind != domain.ActionRaise {
		return nil
	}
	return &vault.Request{Amount: max(20, self.Chips/2)}
}

// bid values auction items by how badly the bot needs them.
func (b *HeuristicBot) bid(view app.TableView, persona Persona) Thought {
	pass := Thought{Decision: ports.Decision{Action: domain.Action{Kind: domain.ActionPass}}}
	la, ok := domain.FindLegal(view.Self.Legal, domain.ActionBid)
	if !ok {
		pass.Reasoning = []string{"I can't afford this one."}
		return pass
	}

	want := 0.5
	switch view.Auction.Item.Effect {
	case "revive":
		want += view.Self.Pressure.Value
	case "bribe_pass":
		if persona.Style == StyleTricky || b.Tuning.CheatRate > 0 {
			want += 0.4
		}
	}
	budget := int64(float64(view.Self.Chips) * b.Tuning.BidFraction * want)
	if la.MinAmount > budget {
		pass.Reasoning = []string{fmt.Sprintf("%s is not worth %d to me.", view.Auction.Item.Name, la.MinAmount)}
		return pass
	}
	return Thought{
		Decision:  ports.Decision{Action: domain.Action{Kind: domain.ActionBid, Amount: la.MinAmount}},
		Reasoning: []string{fmt.Sprintf("%s would help. I'll offer %d.", view.Auction.Item.Name, la.MinAmount)},
	}
}

// Vote convicts when the accused have been betting suspiciously and the defense
// did not say much.
func (b *HeuristicBot) Vote(req ports.VoteRequest, mem *brain.GameMemory, persona Persona) (ports.Vote, []string) {
	est := brain.NewEstimator(mem)
	suspicion := (est.Suspicion(req.Targets[0]) + est.Suspicion(req.Targets[1])) / 2
	for _, id := range req.Targets {
		if req.Defenses[id] == "" {
			suspicion += 0.15
		}
	}
	for _, s := range req.View.Seats {
		if s.ID == req.Targets[0] || s.ID == req.Targets[1] {
			suspicion += 0.1 * s.Experience / (s.Experience + 50)
		}
	}
	if persona.Style == StyleCautious {
		suspicion -= 0.1
	}

	reasoning := []string{fmt.Sprintf("Suspicion on %s and %s: %.2f.", req.Targets[0], req.Targets[1], suspicion)}
	switch {
	case suspicion >= 0.45:
		return ports.Vote{Verdict: domain.VerdictGuilty, Reason: "their betting does not add up"}, reasoning
	case suspicion <= 0.2:
		return ports.Vote{Verdict: domain.VerdictNotGuilty, Reason: "nothing points at them"}, reasoning
	}
	return ports.Vote{Verdict: domain.VerdictAbstain, Reason: "not enough to go on"}, reasoning
}
