package brain

// OpponentProfile tracks the betting history of a single opponent.
type OpponentProfile struct {
	ID          string
	Hands       int
	Raises      int
	Calls       int
	Folds       int
	Looks       int
	BlindRaises int // raises made before looking

	// Current hand.
	LastBet    int64
	HandRaises int
	Looked     bool
	Folded     bool
}

// NewOpponentProfile initializes a profile for a player.
func NewOpponentProfile(id string) *OpponentProfile {
	return &OpponentProfile{ID: id}
}

// Aggression is the smoothed share of raises among the opponent's voluntary bets.
// An opponent we know nothing about sits at 0.5.
func (p *OpponentProfile) Aggression() float64 {
	return float64(p.Raises+1) / float64(p.Raises+p.Calls+2)
}

// FoldRate is the smoothed share of hands the opponent gave up.
func (p *OpponentProfile) FoldRate() float64 {
	return float64(p.Folds+1) / float64(p.Hands+2)
}

// BluffRate is the share of raises made blind.
func (p *OpponentProfile) BluffRate() float64 {
	if p.Raises == 0 {
		return 0
	}
	return float64(p.BlindRaises) / float64(p.Raises)
}

func (p *OpponentProfile) startHand() {
	p.Hands++
	p.LastBet = 0
	p.HandRaises = 0
	p.Looked = false
	p.Folded = false
}
