package app

import (
	"fmt"

	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"
)

// Auction is a between-hands sale of one catalog item.
type Auction struct {
	Item       config.Item
	Bidders    []string
	HighBid    int64
	HighBidder string
	Round      int

	out       map[string]bool
	lastRaise int64
	turn      int
	raised    bool
}

// AuctionView is the read-only state of an open auction.
type AuctionView struct {
	Item       config.Item `json:"item"`
	HighBid    int64       `json:"high_bid"`
	HighBidder string      `json:"high_bidder,omitempty"`
	MinBid     int64       `json:"min_bid"`
	Round      int         `json:"round"`
}

// OpenAuction returns the running auction, if any.
func (e *Engine) OpenAuction() (AuctionView, bool) {
	if e.auction == nil {
		return AuctionView{}, false
	}
	a := e.auction
	return AuctionView{Item: a.Item, HighBid: a.HighBid, HighBidder: a.HighBidder, MinBid: e.minBid(), Round: a.Round}, true
}

// AuctionBidder returns the player whose bid is pending.
func (e *Engine) AuctionBidder() (*domain.Player, bool) {
	if e.auction == nil {
		return nil, false
	}
	return e.Player(e.auction.Bidders[e.auction.turn])
}

func (e *Engine) openAuction() []Event {
	ac := e.cfg.Auction
	if !ac.Enabled || len(ac.Items) == 0 {
		return nil
	}
	start := max(1, ac.StartBid)
	var bidders []string
	for _, p := range e.actingOrder() {
		if p.Alive && p.Chips >= start {
			bidders = append(bidders, p.ID)
		}
	}
	if len(bidders) < 2 {
		return nil
	}

	item := ac.Items[e.rng.Intn(len(ac.Items))]
	e.auction = &Auction{Item: item, Bidders: bidders, out: make(map[string]bool)}
	e.state.DecisionSeq++
	return []Event{e.public(EventAuctionOpened, "", fmt.Sprintf("Auction opens for %s", item.Name), map[string]any{
		"item":      item.ID,
		"effect":    item.Effect,
		"start_bid": start,
	})}
}

func (e *Engine) minBid() int64 {
	a := e.auction
	if a.HighBidder == "" {
		return max(1, e.cfg.Auction.StartBid)
	}
	return a.HighBid + max(e.cfg.Auction.MinIncrement, a.lastRaise/2)
}

func (e *Engine) auctionActions(p *domain.Player) []domain.LegalAction {
	current, ok := e.AuctionBidder()
	if !ok || current.ID != p.ID {
		return nil
	}
	legal := []domain.LegalAction{{Kind: domain.ActionPass}}
	if minBid := e.minBid(); p.Chips >= minBid {
		legal = append(legal, domain.LegalAction{Kind: domain.ActionBid, MinAmount: minBid, MaxAmount: p.Chips})
	}
	return legal
}

func (e *Engine) applyAuctionAction(p *domain.Player, action domain.Action) ([]Event, error) {
	current, _ := e.AuctionBidder()
	if current.ID != p.ID {
		return nil, invalid(p.ID, action.Kind, ErrNotActivePlayer)
	}
	a := e.auction

	var events []Event
	switch action.Kind {
	case domain.ActionBid:
		minBid := e.minBid()
		if action.Amount > p.Chips {
			return nil, invalid(p.ID, action.Kind, ErrInsufficientChips)
		}
		if action.Amount < minBid {
			return nil, invalid(p.ID, action.Kind, fmt.Errorf("bid %d below minimum %d: %w", action.Amount, minBid, ErrIllegalAction))
		}
		a.lastRaise = action.Amount - a.HighBid
		a.HighBid = action.Amount
		a.HighBidder = p.ID
		a.raised = true
		events = append(events, e.public(EventAuctionBid, p.ID, fmt.Sprintf("%s bids %d", p.Name, action.Amount), map[string]any{"amount": action.Amount}))
	case domain.ActionPass:
		a.out[p.ID] = true
		events = append(events, e.public(EventAuctionPass, p.ID, fmt.Sprintf("%s drops out", p.Name), nil))
	default:
		return nil, invalid(p.ID, action.Kind, ErrAuctionOpen)
	}

	e.state.DecisionSeq++
	return append(events, e.advanceAuction()...), nil
}

func (e *Engine) advanceAuction() []Event {
	a := e.auction
	maxRounds := max(1, e.cfg.Auction.MaxRounds)
	for {
		live := 0
		for _, id := range a.Bidders {
			if !a.out[id] {
				live++
			}
		}
		if live == 0 || (live == 1 && a.HighBidder != "") {
			return e.closeAuction()
		}

		a.turn++
		if a.turn >= len(a.Bidders) {
			a.turn = 0
			if !a.raised || a.Round+1 >= maxRounds {
				return e.closeAuction()
			}
			a.Round++
			a.raised = false
		}
		id := a.Bidders[a.turn]
		if a.out[id] || id == a.HighBidder {
			continue
		}
		return nil
	}
}

func (e *Engine) closeAuction() []Event {
	a := e.auction
	e.auction = nil
	e.state.DecisionSeq++
	if a.HighBidder == "" {
		return []Event{e.public(EventAuctionClosed, "", fmt.Sprintf("%s goes unsold", a.Item.Name), map[string]any{"item": a.Item.ID})}
	}
	winner, _ := e.Player(a.HighBidder)
	paid := min(a.HighBid, winner.Chips)
	winner.Chips -= paid
	winner.Inventory = append(winner.Inventory, a.Item.ID)
	return []Event{e.public(EventAuctionClosed, winner.ID, fmt.Sprintf("%s buys %s for %d", winner.Name, a.Item.Name, paid), map[string]any{
		"item":   a.Item.ID,
		"amount": paid,
	})}
}
