package domain

// SidePot is one tier of the hand's stake and the seats that can win it.
type SidePot struct {
	Amount        int64
	EligibleSeats []int
}

// BuildSidePots splits per-seat commitments into tiers in ascending stake order.
// Seats that folded still fund tiers but are never eligible. Adjacent tiers with the
// same eligible seats are merged, and a tier nobody can win is folded into its neighbour.
func BuildSidePots(committed []int64, eligible []bool) []SidePot {
	type remainder struct {
		seat     int
		amount   int64
		eligible bool
	}
	remaining := make([]remainder, 0, len(committed))
	for seat, amount := range committed {
		if amount <= 0 {
			continue
		}
		remaining = append(remaining, remainder{seat: seat, amount: amount, eligible: eligible[seat]})
	}

	var tiers []SidePot
	for len(remaining) > 0 {
		min := remaining[0].amount
		for _, r := range remaining[1:] {
			if r.amount < min {
				min = r.amount
			}
		}

		tier := SidePot{Amount: min * int64(len(remaining))}
		for _, r := range remaining {
			if r.eligible {
				tier.EligibleSeats = append(tier.EligibleSeats, r.seat)
			}
		}
		tiers = append(tiers, tier)

		next := remaining[:0]
		for _, r := range remaining {
			r.amount -= min
			if r.amount > 0 {
				next = append(next, r)
			}
		}
		remaining = next
	}

	var merged []SidePot
	var orphan int64
	for _, tier := range tiers {
		if len(tier.EligibleSeats) == 0 {
			if len(merged) > 0 {
				merged[len(merged)-1].Amount += tier.Amount
			} else {
				orphan += tier.Amount
			}
			continue
		}
		tier.Amount += orphan
		orphan = 0
		if len(merged) > 0 && sameSeats(merged[len(merged)-1].EligibleSeats, tier.EligibleSeats) {
			merged[len(merged)-1].Amount += tier.Amount
			continue
		}
		merged = append(merged, SidePot{Amount: tier.Amount, EligibleSeats: append([]int(nil), tier.EligibleSeats...)})
	}
	return merged
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SplitPot divides amount between winners in seat order; the remainder goes to the first.
func SplitPot(amount int64, winners []int) map[int]int64 {
	out := make(map[int]int64, len(winners))
	if len(winners) == 0 {
		return out
	}
	share := amount / int64(len(winners))
	for _, seat := range winners {
		out[seat] += share
	}
	out[winners[0]] += amount - share*int64(len(winners))
	return out
}
