package brain

import (
	"math"

	"zhajinhua/internal/app"
)

// Estimator turns memory into guesses about opponents' hands.
type Estimator struct {
	Memory *GameMemory
}

// NewEstimator creates a new reasoning engine.
func NewEstimator(m *GameMemory) *Estimator {
	return &Estimator{Memory: m}
}

// OpponentStrength guesses an opponent's hand strength in [0,1] from how they played
// this hand. Raises from habitual raisers and blind bettors count for less.
func (e *Estimator) OpponentStrength(id string) float64 {
	p, ok := e.Memory.Opponents[id]
	if !ok {
		return 0.5
	}
	est := 0.45
	if p.Looked {
		est += 0.05
	}
	credibility := 1 - 0.6*p.Aggression()
	if !p.Looked {
		credibility *= 0.5
	}
	est += 0.15 * float64(p.HandRaises) * credibility
	return math.Max(0, math.Min(1, est))
}

// Threat returns the live opponent that looks strongest and their estimate.
func (e *Estimator) Threat(view app.TableView) (string, float64) {
	best, bestEst := "", -1.0
	for _, s := range view.Seats {
		if s.ID == view.Self.ID || s.Folded || !s.Alive {
			continue
		}
		if est := e.OpponentStrength(s.ID); est > bestEst {
			best, bestEst = s.ID, est
		}
	}
	if best == "" {
		return "", 0
	}
	return best, bestEst
}

// Weakest picks the candidate that looks easiest to beat.
func (e *Estimator) Weakest(candidates []string) (string, float64) {
	best, bestEst := "", 2.0
	for _, id := range candidates {
		if est := e.OpponentStrength(id); est < bestEst {
			best, bestEst = id, est
		}
	}
	return best, bestEst
}

// WinProbability is a rough chance that strength beats every live opponent.
func (e *Estimator) WinProbability(strength float64, view app.TableView) float64 {
	prob := 1.0
	for _, s := range view.Seats {
		if s.ID == view.Self.ID || s.Folded || !s.Alive {
			continue
		}
		opp := e.OpponentStrength(s.ID)
		// Logistic edge over a single opponent.
		prob *= 1 / (1 + math.Exp(-8*(strength-opp)))
	}
	return prob
}

// Suspicion scores how likely an opponent is to be cheating, from betting that
// outran what their stack and history suggest.
func (e *Estimator) Suspicion(id string) float64 {
	p, ok := e.Memory.Opponents[id]
	if !ok {
		return 0
	}
	s := 0.2*float64(p.HandRaises) + 0.3*p.BluffRate()
	if p.Looked && p.HandRaises > 1 {
		s += 0.2
	}
	return math.Min(1, s)
}
