package domain

import "sort"

// HandCategory classifies a three-card hand. Higher values beat lower values.
type HandCategory int

const (
	HighCard HandCategory = iota
	Pair
	Straight
	Flush
	StraightFlush
	Trips
	Special235 // 2-3-5 of mixed suits; outranks Trips
)

var categoryNames = [...]string{"high_card", "pair", "straight", "flush", "straight_flush", "trips", "special_235"}

func (c HandCategory) String() string {
	if c < HighCard || c > Special235 {
		return "unknown"
	}
	return categoryNames[c]
}

// HandRank is the evaluated strength of a hand: its category plus a descending tiebreak key.
type HandRank struct {
	Category HandCategory
	Key      [HoleCardCount]Rank
}

// Compare returns 1 when r beats other, -1 when other beats r and 0 on a declared tie.
func (r HandRank) Compare(other HandRank) int {
	if r.Category != other.Category {
		if r.Category > other.Category {
			return 1
		}
		return -1
	}
	for i := range r.Key {
		if r.Key[i] > other.Key[i] {
			return 1
		}
		if r.Key[i] < other.Key[i] {
			return -1
		}
	}
	return 0
}

// Strength maps a hand rank onto [0,1) so that stronger hands always score higher.
func (r HandRank) Strength() float64 {
	const base = float64(RankAce + 1)
	keyFraction := (float64(r.Key[0])*base*base + float64(r.Key[1])*base + float64(r.Key[2])) / (base * base * base)
	return (float64(r.Category) + keyFraction) / float64(Special235+1)
}

// Outcome is the result of a head-to-head comparison.
type Outcome int

const (
	OutcomeTie Outcome = iota
	OutcomeA
	OutcomeB
)

// Evaluate ranks exactly three cards. Passing any other count is a caller error.
func Evaluate(cards []Card) HandRank {
	ranks := make([]Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })

	flush := cards[0].Suit == cards[1].Suit && cards[1].Suit == cards[2].Suit

	// House rule: checked ahead of every generic category.
	if !flush && ranks[0] == RankFive && ranks[1] == RankThree && ranks[2] == RankTwo {
		return HandRank{Category: Special235, Key: [HoleCardCount]Rank{ranks[0], ranks[1], ranks[2]}}
	}

	if ranks[0] == ranks[2] {
		return HandRank{Category: Trips, Key: [HoleCardCount]Rank{ranks[0]}}
	}

	high, straight := straightHigh(ranks)
	switch {
	case straight && flush:
		return HandRank{Category: StraightFlush, Key: [HoleCardCount]Rank{high}}
	case flush:
		return HandRank{Category: Flush, Key: [HoleCardCount]Rank{ranks[0], ranks[1], ranks[2]}}
	case straight:
		return HandRank{Category: Straight, Key: [HoleCardCount]Rank{high}}
	case ranks[0] == ranks[1]:
		return HandRank{Category: Pair, Key: [HoleCardCount]Rank{ranks[0], ranks[2]}}
	case ranks[1] == ranks[2]:
		return HandRank{Category: Pair, Key: [HoleCardCount]Rank{ranks[1], ranks[0]}}
	}
	return HandRank{Category: HighCard, Key: [HoleCardCount]Rank{ranks[0], ranks[1], ranks[2]}}
}

// straightHigh expects ranks sorted descending. A-2-3 is the lowest straight and ranks by its three.
func straightHigh(ranks []Rank) (Rank, bool) {
	if ranks[0]-ranks[1] == 1 && ranks[1]-ranks[2] == 1 {
		return ranks[0], true
	}
	if ranks[0] == RankAce && ranks[1] == RankThree && ranks[2] == RankTwo {
		return RankThree, true
	}
	return 0, false
}

// Compare evaluates both hands and reports which one wins.
func Compare(handA, handB []Card) Outcome {
	switch Evaluate(handA).Compare(Evaluate(handB)) {
	case 1:
		return OutcomeA
	case -1:
		return OutcomeB
	}
	return OutcomeTie
}
