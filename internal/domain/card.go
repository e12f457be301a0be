package domain

import (
	"fmt"
	"strings"
)

// Rank is a card rank where 0 is the deuce and 12 is the ace.
type Rank int

// Suit is a card suit. Lower values carry higher priority when suits are displayed.
type Suit int

const (
	SuitSpades Suit = iota
	SuitHearts
	SuitClubs
	SuitDiamonds
)

const (
	RankTwo   Rank = 0
	RankThree Rank = 1
	RankFive  Rank = 3
	RankAce   Rank = 12
)

var (
	rankSymbols = [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	suitSymbols = [...]string{"♠", "♥", "♣", "♦"}
)

// Card is a single playing card. Cards are values and are never mutated after the deal.
type Card struct {
	Rank Rank
	Suit Suit
}

// Valid reports whether the card has an in-range rank and suit.
func (c Card) Valid() bool {
	return c.Rank >= RankTwo && c.Rank <= RankAce && c.Suit >= SuitSpades && c.Suit <= SuitDiamonds
}

func (c Card) String() string {
	if !c.Valid() {
		return fmt.Sprintf("?%d/%d", c.Rank, c.Suit)
	}
	return rankSymbols[c.Rank] + suitSymbols[c.Suit]
}

// FormatCards renders cards highest first, separated by spaces.
func FormatCards(cards []Card) string {
	sorted := append([]Card(nil), cards...)
	SortHand(sorted)
	out := ""
	for i, c := range sorted {
		if i > 0 {
			out += " "
		}
		out += c.String()
	}
	return out
}

// ParseCard reads a card in the form produced by Card.String, e.g. "10♥".
func ParseCard(s string) (Card, error) {
	for si, sym := range suitSymbols {
		rank, ok := strings.CutSuffix(s, sym)
		if !ok {
			continue
		}
		for ri, r := range rankSymbols {
			if r == rank {
				return Card{Rank: Rank(ri), Suit: Suit(si)}, nil
			}
		}
	}
	return Card{}, fmt.Errorf("parse card %q: unknown rank or suit", s)
}
