package vault

import "zhajinhua/internal/domain"

// Pressure is a player's relative standing at the table.
type Pressure struct {
	ChipRatio  float64 `json:"chip_ratio"`  // chips over the alive-table average
	LoanBurden float64 `json:"loan_burden"` // outstanding debt over chips plus debt
	Value      float64 `json:"value"`       // 0 is comfortable, 1 is desperate
}

// ComputePressureSnapshot derives pressure from the current stacks. It is never cached.
func ComputePressureSnapshot(p *domain.Player, players []*domain.Player) Pressure {
	var total int64
	var alive int
	for _, other := range players {
		if other.Alive {
			total += other.Chips
			alive++
		}
	}
	ratio := 1.0
	if alive > 0 && total > 0 {
		ratio = float64(p.Chips) / (float64(total) / float64(alive))
	}

	var burden float64
	if loan := p.OutstandingLoan(); loan != nil {
		burden = float64(loan.DueAmount) / float64(p.Chips+loan.DueAmount)
	}

	value := clamp01(1-ratio) + burden*0.5
	return Pressure{ChipRatio: ratio, LoanBurden: burden, Value: clamp01(value)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
