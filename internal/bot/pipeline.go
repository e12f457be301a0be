package bot

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"zhajinhua/internal/app"
	"zhajinhua/internal/bot/brain"
	"zhajinhua/internal/domain"
)

// DecisionContext holds the state for the action scoring pipeline.
type DecisionContext struct {
	View     app.TableView
	Estimate *brain.Estimator
	Persona  Persona
	Tuning   Tuning
	Rng      *rand.Rand

	Equity  float64 // own hand equity, or a guess before looking
	WinProb float64

	CompareTarget string
	AccuseTargets [2]string

	Scores map[domain.ActionKind]float64
	Notes  []string
}

func newDecisionContext(view app.TableView, mem *brain.GameMemory, persona Persona, t Tuning, rng *rand.Rand) *DecisionContext {
	ctx := &DecisionContext{
		View:     view,
		Estimate: brain.NewEstimator(mem),
		Persona:  persona,
		Tuning:   t,
		Rng:      rng,
		Equity:   t.BlindGuess,
		Scores:   make(map[domain.ActionKind]float64),
	}
	if view.Self.Category != "" {
		ctx.Equity = Equity(view.Self.Category, view.Self.Strength)
	}
	ctx.WinProb = ctx.Estimate.WinProbability(ctx.Equity, view)
	return ctx
}

// Legal returns the legal entry for kind.
func (c *DecisionContext) Legal(kind domain.ActionKind) (domain.LegalAction, bool) {
	return domain.FindLegal(c.View.Self.Legal, kind)
}

// Add moves the score of a legal action. Unlisted actions are ignored.
func (c *DecisionContext) Add(kind domain.ActionKind, delta float64, note string) {
	if _, ok := c.Legal(kind); !ok {
		return
	}
	c.Scores[kind] += delta
	if note != "" {
		c.Notes = append(c.Notes, note)
	}
}

// Best returns the highest scoring legal action. Earlier entries of the legal list
// win ties, so fold beats an equally scored call.
func (c *DecisionContext) Best() domain.ActionKind {
	best, bestScore := domain.ActionFold, math.Inf(-1)
	for _, la := range c.View.Self.Legal {
		score, ok := c.Scores[la.Kind]
		if ok && score > bestScore {
			best, bestScore = la.Kind, score
		}
	}
	return best
}

// ScoringRule is a logic unit that can influence which action is chosen.
type ScoringRule interface {
	Name() string
	Apply(ctx *DecisionContext)
}

// DefaultPipeline is the rule order used by every bot level.
var DefaultPipeline = []ScoringRule{
	&HandStrengthRule{},
	&PressureRule{},
	&OpponentReadRule{},
	&PersonaRule{},
	&BluffRule{},
	&BribeRule{},
	&AccuseRule{},
}

// HandStrengthRule scores the basic actions from win probability and pot odds.
type HandStrengthRule struct{}

func (r *HandStrengthRule) Name() string { return "HandStrength" }

func (r *HandStrengthRule) Apply(ctx *DecisionContext) {
	v, t := ctx.View, ctx.Tuning
	odds := 0.0
	if v.ToCall > 0 {
		odds = float64(v.ToCall) / float64(v.Pot+v.DeadMoney+v.ToCall)
	}

	ctx.Scores[domain.ActionFold] = 0
	ctx.Add(domain.ActionCall, ctx.WinProb-odds+t.CallBias,
		fmt.Sprintf("I give myself %.0f%% here and it costs %d to stay.", ctx.WinProb*100, v.ToCall))
	ctx.Add(domain.ActionRaise, 2*(ctx.WinProb-t.RaiseAbove)+t.CallBias, "")
	if !v.Self.HasLooked {
		ctx.Add(domain.ActionLook, t.LookFirst, "")
	}

	if la, ok := ctx.Legal(domain.ActionCompare); ok {
		target, est := ctx.Estimate.Weakest(la.Targets)
		headsUp := 1 / (1 + math.Exp(-8*(ctx.Equity-est)))
		cost := float64(la.Cost) / float64(max(1, v.Self.Chips))
		ctx.CompareTarget = target
		ctx.Add(domain.ActionCompare, headsUp-t.CompareAbove-cost,
			fmt.Sprintf("%s looks beatable, about %.0f%% heads-up.", target, headsUp*100))
	}
}

// PressureRule reacts to a shrinking stack. Timid bots tighten, reckless ones gamble.
type PressureRule struct{}

func (r *PressureRule) Name() string { return "Pressure" }

func (r *PressureRule) Apply(ctx *DecisionContext) {
	pv := ctx.View.Self.Pressure.Value
	if pv < 0.3 {
		return
	}
	fear := ctx.Tuning.PressureFear
	note := "My stack is thin, careful now."
	if fear < 0 {
		note = "Short stack. Nothing to lose by swinging."
	}
	ctx.Add(domain.ActionCall, -0.3*pv*fear, note)
	ctx.Add(domain.ActionRaise, -0.5*pv*fear, "")
}

// OpponentReadRule backs off from opponents who have been betting with conviction.
type OpponentReadRule struct{}

func (r *OpponentReadRule) Name() string { return "OpponentRead" }

func (r *OpponentReadRule) Apply(ctx *DecisionContext) {
	id, est := ctx.Estimate.Threat(ctx.View)
	if id == "" || est < 0.7 {
		return
	}
	ctx.Add(domain.ActionRaise, -(est - 0.7), fmt.Sprintf("%s keeps raising and I believe them.", id))
	ctx.Add(domain.ActionCall, -(est-0.7)/2, "")
}

// PersonaRule colours scores with the persona's playing style.
type PersonaRule struct{}

func (r *PersonaRule) Name() string { return "Persona" }

func (r *PersonaRule) Apply(ctx *DecisionContext) {
	switch ctx.Persona.Style {
	case StyleAggressive:
		ctx.Add(domain.ActionRaise, 0.15, "")
		ctx.Add(domain.ActionFold, -0.05, "")
	case StyleCautious:
		ctx.Add(domain.ActionFold, 0.1, "")
		ctx.Add(domain.ActionRaise, -0.1, "")
	case StyleTricky:
		ctx.Add(domain.ActionCompare, 0.1, "")
	}
}

// BluffRule occasionally raises regardless of the cards.
type BluffRule struct{}

func (r *BluffRule) Name() string { return "Bluff" }

func (r *BluffRule) Apply(ctx *DecisionContext) {
	rate := ctx.Tuning.BluffRate
	if ctx.Persona.Style == StyleTricky {
		rate *= 2
	}
	if ctx.Rng.Float64() < rate {
		ctx.Add(domain.ActionRaise, 0.6, "Nobody can read me. Time to push.")
	}
}

// BribeRule pays off the floor once the table alert gets high.
type BribeRule struct{}

func (r *BribeRule) Name() string { return "Bribe" }

func (r *BribeRule) Apply(ctx *DecisionContext) {
	alert := ctx.View.AlertLevel
	if alert < 40 {
		return
	}
	ctx.Add(domain.ActionBribe, alert/100, fmt.Sprintf("Alert is at %.0f. A little favor will calm the floor.", alert))
}

// AccuseRule files an accusation against the two most suspicious opponents.
type AccuseRule struct{}

func (r *AccuseRule) Name() string { return "Accuse" }

func (r *AccuseRule) Apply(ctx *DecisionContext) {
	la, ok := ctx.Legal(domain.ActionAccuse)
	if !ok || ctx.Tuning.AccuseAbove <= 0 || len(la.Targets) < 2 {
		return
	}
	targets := append([]string(nil), la.Targets...)
	sort.SliceStable(targets, func(i, j int) bool {
		return ctx.Estimate.Suspicion(targets[i]) > ctx.Estimate.Suspicion(targets[j])
	})
	avg := (ctx.Estimate.Suspicion(targets[0]) + ctx.Estimate.Suspicion(targets[1])) / 2
	if avg < ctx.Tuning.AccuseAbove {
		return
	}
	ctx.AccuseTargets = [2]string{targets[0], targets[1]}
	ctx.Add(domain.ActionAccuse, avg+0.5, fmt.Sprintf("%s and %s are playing hands they cannot have.", targets[0], targets[1]))
}

var categoryFloor = map[string]float64{
	domain.HighCard.String():      0,
	domain.Pair.String():          0.74,
	domain.Straight.String():      0.91,
	domain.Flush.String():         0.94,
	domain.StraightFlush.String(): 0.99,
	domain.Trips.String():         0.995,
	domain.Special235.String():    0.999,
}

// Equity turns a category and a raw strength score into the approximate share of
// three-card hands it beats.
func Equity(category string, strength float64) float64 {
	floor, ok := categoryFloor[category]
	if !ok {
		return 0
	}
	ceil := 1.0
	for _, f := range categoryFloor {
		if f > floor && f < ceil {
			ceil = f
		}
	}
	// Strength is (category + key fraction) over the category count.
	scaled := strength * float64(domain.Special235+1)
	frac := scaled - math.Floor(scaled)
	return floor + (ceil-floor)*frac
}
