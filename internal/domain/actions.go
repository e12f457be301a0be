package domain

// ActionKind names a player action.
type ActionKind string

const (
	ActionFold    ActionKind = "fold"
	ActionCall    ActionKind = "call"
	ActionRaise   ActionKind = "raise"
	ActionLook    ActionKind = "look"
	ActionCompare ActionKind = "compare"
	ActionAccuse  ActionKind = "accuse"
	ActionBribe   ActionKind = "bribe"
	ActionBid     ActionKind = "bid"
	ActionPass    ActionKind = "pass"
)

// Action is a decision submitted for the active player.
//
// Amount is the raise increment over the current bet for raises, the total offer for
// bids and the chips paid for bribes. Target is the compare opponent or the first
// accused player; SecondTarget is the second accused player.
type Action struct {
	Kind         ActionKind `json:"kind"`
	Amount       int64      `json:"amount,omitempty"`
	Target       string     `json:"target,omitempty"`
	SecondTarget string     `json:"second_target,omitempty"`
}

// LegalAction describes one currently legal action and its bounds.
type LegalAction struct {
	Kind      ActionKind `json:"kind"`
	Cost      int64      `json:"cost,omitempty"`
	MinAmount int64      `json:"min_amount,omitempty"`
	MaxAmount int64      `json:"max_amount,omitempty"`
	Targets   []string   `json:"targets,omitempty"`
}

// FindLegal returns the entry for kind, if present.
func FindLegal(legal []LegalAction, kind ActionKind) (LegalAction, bool) {
	for _, la := range legal {
		if la.Kind == kind {
			return la, true
		}
	}
	return LegalAction{}, false
}

// Fold is the safe default action.
func Fold() Action {
	return Action{Kind: ActionFold}
}

// CheatKind names a card manipulation.
type CheatKind string

const (
	CheatSwapSuit CheatKind = "swap_suit"
	CheatSwapRank CheatKind = "swap_rank"
)

// CheatMove asks to replace one hole card.
type CheatMove struct {
	Kind      CheatKind `json:"kind"`
	CardIndex int       `json:"card_index"`
	NewRank   Rank      `json:"new_rank"`
	NewSuit   Suit      `json:"new_suit"`
}

// Verdict is a juror's vote.
type Verdict string

const (
	VerdictGuilty    Verdict = "guilty"
	VerdictNotGuilty Verdict = "not_guilty"
	VerdictAbstain   Verdict = "abstain"
)
