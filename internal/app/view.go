package app

import (
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/domain"
)

// SeatView is what everyone at the table can see about a player.
type SeatView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Seat       int      `json:"seat"`
	Chips      int64    `json:"chips"`
	Bet        int64    `json:"bet"`
	Committed  int64    `json:"committed"`
	Alive      bool     `json:"alive"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	HasLooked  bool     `json:"has_looked"`
	Experience float64  `json:"experience"`
	Tags       []string `json:"tags,omitempty"`
}

// SelfView is the private part of a player's view.
type SelfView struct {
	SeatView
	Cards     []string             `json:"cards,omitempty"`
	Category  string               `json:"category,omitempty"`
	Strength  float64              `json:"strength,omitempty"`
	Inventory []string             `json:"inventory,omitempty"`
	Loan      *domain.LoanRecord   `json:"loan,omitempty"`
	Pressure  vault.Pressure       `json:"pressure"`
	Legal     []domain.LegalAction `json:"legal"`
	Cheat     domain.CheatStats    `json:"cheat"`
}

// TableView is the decision context handed to an agent.
type TableView struct {
	GameID      string       `json:"game_id"`
	Phase       domain.Phase `json:"phase"`
	HandCount   int          `json:"hand_count"`
	RoundIndex  int          `json:"round_index"`
	Pot         int64        `json:"pot"`
	DeadMoney   int64        `json:"dead_money"`
	CurrentBet  int64        `json:"current_bet"`
	ToCall      int64        `json:"to_call"`
	AlertLevel  float64      `json:"alert_level"`
	Seats       []SeatView   `json:"seats"`
	Self        SelfView     `json:"self"`
	Auction     *AuctionView `json:"auction,omitempty"`
	TrialTarget []string     `json:"trial_targets,omitempty"`
}

// View builds the table as seen by playerID. Hole cards are only included once
// the player has looked at them.
func (e *Engine) View(playerID string) (TableView, error) {
	p, ok := e.Player(playerID)
	if !ok {
		return TableView{}, ErrUnknownPlayer
	}
	v := TableView{
		GameID:     e.gameID,
		Phase:      e.state.Phase,
		HandCount:  e.state.HandCount,
		RoundIndex: e.state.RoundIndex,
		Pot:        e.state.Pot,
		DeadMoney:  e.state.DeadMoney,
		CurrentBet: e.state.CurrentBet,
		ToCall:     e.ToCall(p),
		AlertLevel: e.state.GlobalAlertLevel,
	}
	for _, other := range e.players {
		v.Seats = append(v.Seats, seatView(other))
	}

	v.Self = SelfView{
		SeatView:  seatView(p),
		Inventory: append([]string(nil), p.Inventory...),
		Loan:      p.OutstandingLoan(),
		Pressure:  vault.ComputePressureSnapshot(p, e.players),
		Legal:     e.AvailableActions(playerID),
		Cheat:     p.Cheat,
	}
	if p.HasLooked && p.InHand() {
		for _, c := range p.Cards() {
			v.Self.Cards = append(v.Self.Cards, c.String())
		}
		rank := domain.Evaluate(p.Cards())
		v.Self.Category = rank.Category.String()
		v.Self.Strength = rank.Strength()
	}
	if a, ok := e.OpenAuction(); ok {
		v.Auction = &a
	}
	if e.trial != nil {
		v.TrialTarget = append([]string(nil), e.trial.Targets[:]...)
	}
	return v, nil
}

// SpectatorView is the table with only public information: no hole cards and
// no private self section.
func (e *Engine) SpectatorView() TableView {
	v := TableView{
		GameID:     e.gameID,
		Phase:      e.state.Phase,
		HandCount:  e.state.HandCount,
		RoundIndex: e.state.RoundIndex,
		Pot:        e.state.Pot,
		DeadMoney:  e.state.DeadMoney,
		CurrentBet: e.state.CurrentBet,
		AlertLevel: e.state.GlobalAlertLevel,
	}
	for _, p := range e.players {
		v.Seats = append(v.Seats, seatView(p))
	}
	if a, ok := e.OpenAuction(); ok {
		v.Auction = &a
	}
	return v
}

func seatView(p *domain.Player) SeatView {
	return SeatView{
		ID:         p.ID,
		Name:       p.Name,
		Seat:       p.Seat,
		Chips:      p.Chips,
		Bet:        p.Bet,
		Committed:  p.Committed,
		Alive:      p.Alive,
		Folded:     p.Folded,
		AllIn:      p.AllIn,
		HasLooked:  p.HasLooked,
		Experience: p.Experience,
		Tags:       p.TagList(),
	}
}
