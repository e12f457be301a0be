package bot

import (
	"fmt"
	"math/rand"

	"zhajinhua/internal/app"
	"zhajinhua/internal/bot/brain"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"
)

// SharkBot plays the heuristic game and adds the covert moves: card swaps and
// private table talk.
type SharkBot struct {
	HeuristicBot
}

func (b *SharkBot) Decide(view app.TableView, mem *brain.GameMemory, persona Persona, rng *rand.Rand) Thought {
	if view.Auction != nil {
		return b.bid(view, persona)
	}
	ctx := newDecisionContext(view, mem, persona, b.Tuning, rng)

	var pre []string
	move, improved := b.cheat(ctx)
	if move != nil {
		// Score the hand as it will be after the swap.
		ctx.Equity = improved
		ctx.WinProb = ctx.Estimate.WinProbability(improved, view)
		pre = append(pre, fmt.Sprintf("Card %d could use some help. Swapping it.", move.CardIndex+1))
	}

	th := b.think(ctx)
	th.Decision.Cheat = move
	th.Reasoning = append(pre, th.Reasoning...)

	if msg := b.message(ctx); msg != nil {
		th.Decision.Message = msg
		th.Reasoning = append(th.Reasoning, fmt.Sprintf("A quiet word for %s.", msg.To))
	}
	return th
}

// cheat proposes a rank swap that pairs the lowest card with the highest one. It
// only fires on weak looked hands while the table is calm.
func (b *SharkBot) cheat(ctx *DecisionContext) (*domain.CheatMove, float64) {
	self := ctx.View.Self
	if len(self.Cards) != domain.HoleCardCount || ctx.View.AlertLevel >= 50 {
		return nil, 0
	}
	if ctx.Equity >= categoryFloor[domain.Pair.String()] || ctx.Rng.Float64() >= b.Tuning.CheatRate {
		return nil, 0
	}

	var hand [domain.HoleCardCount]domain.Card
	for i, s := range self.Cards {
		c, err := domain.ParseCard(s)
		if err != nil {
			return nil, 0
		}
		hand[i] = c
	}
	low, high := 0, 0
	for i, c := range hand {
		if c.Rank < hand[low].Rank {
			low = i
		}
		if c.Rank > hand[high].Rank {
			high = i
		}
	}
	if hand[low].Rank == hand[high].Rank {
		return nil, 0
	}

	move := &domain.CheatMove{Kind: domain.CheatSwapRank, CardIndex: low, NewRank: hand[high].Rank}
	hand[low].Rank = hand[high].Rank
	rank := domain.Evaluate(hand[:])
	return move, Equity(rank.Category.String(), rank.Strength())
}

// message needles the most dangerous opponent.
func (b *SharkBot) message(ctx *DecisionContext) *ports.SecretMessage {
	if ctx.Rng.Float64() >= b.Tuning.MessageRate {
		return nil
	}
	id, _ := ctx.Estimate.Threat(ctx.View)
	if id == "" {
		return nil
	}
	return &ports.SecretMessage{To: id, Text: "Fold this one and I'll leave you alone next hand."}
}
