package bot

// Tuning weighs the scoring rules for one bot level.
type Tuning struct {
	LookFirst    float64 // score for looking before betting
	BlindGuess   float64 // assumed equity before looking
	CallBias     float64
	RaiseAbove   float64 // win probability above which raising pays
	RaiseScale   float64 // extra min-raises per point of win probability over RaiseAbove
	CompareAbove float64 // head-to-head odds needed before paying to compare
	BluffRate    float64
	PressureFear float64 // positive tightens under pressure, negative gambles
	BidFraction  float64 // share of the stack the bot will spend at auction
	LoanPressure float64 // pressure that triggers a loan request; 0 disables
	AccuseAbove  float64 // suspicion that triggers an accusation; 0 disables
	CheatRate    float64
	MessageRate  float64
}

var levelTuning = map[BotLevel]Tuning{
	BotLevelCautious: {
		LookFirst:    1.0,
		BlindGuess:   0.4,
		CallBias:     0.0,
		RaiseAbove:   0.75,
		RaiseScale:   2,
		CompareAbove: 0.65,
		BluffRate:    0.02,
		PressureFear: 0.8,
		BidFraction:  0.15,
	},
	BotLevelBalanced: {
		LookFirst:    0.6,
		BlindGuess:   0.5,
		CallBias:     0.1,
		RaiseAbove:   0.6,
		RaiseScale:   4,
		CompareAbove: 0.55,
		BluffRate:    0.08,
		PressureFear: 0.3,
		BidFraction:  0.25,
		LoanPressure: 0.6,
		AccuseAbove:  0.85,
	},
	BotLevelShark: {
		LookFirst:    0.35,
		BlindGuess:   0.5,
		CallBias:     0.15,
		RaiseAbove:   0.5,
		RaiseScale:   6,
		CompareAbove: 0.5,
		BluffRate:    0.18,
		PressureFear: -0.4,
		BidFraction:  0.35,
		LoanPressure: 0.45,
		AccuseAbove:  0.6,
		CheatRate:    0.25,
		MessageRate:  0.2,
	},
}
