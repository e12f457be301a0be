package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// TableConfig holds the betting structure of a table.
type TableConfig struct {
	Players      int   `json:"players"`
	InitialChips int64 `json:"initial_chips"`
	// BaseBet is the per-player ante unit. Zero disables antes.
	BaseBet       int64 `json:"base_bet"`
	AnteStep      int64 `json:"ante_step"`
	AnteStepEvery int   `json:"ante_step_every"`
	MinRaise      int64 `json:"min_raise"`
	// MinBettingRounds is how many rounds must complete before compare or accuse is allowed.
	MinBettingRounds    int   `json:"min_betting_rounds"`
	MaxBettingRounds    int   `json:"max_betting_rounds"`
	MaxHands            int   `json:"max_hands"`
	CompareStakePercent int64 `json:"compare_stake_percent"`
	AccuseFeeMultiplier int64 `json:"accuse_fee_multiplier"`
	AccuseMinFee        int64 `json:"accuse_min_fee"`
	ReviveChips         int64 `json:"revive_chips"`
}

// VaultConfig holds loan thresholds.
type VaultConfig struct {
	MinExperience         float64 `json:"min_experience"`
	MaxCollateralFraction float64 `json:"max_collateral_fraction"`
	CollateralRatio       float64 `json:"collateral_ratio"`
	BaseLimit             int64   `json:"base_limit"`
	LimitPerExperience    float64 `json:"limit_per_experience"`
	MaxLimitBonus         int64   `json:"max_limit_bonus"`
	MinTermHands          int     `json:"min_term_hands"`
	DefaultTermHands      int     `json:"default_term_hands"`
	MaxTermHands          int     `json:"max_term_hands"`
	BaseInterest          float64 `json:"base_interest"`
	InterestSlope         float64 `json:"interest_slope"`
	InterestExperienceCap float64 `json:"interest_experience_cap"`
	InterestDivisor       float64 `json:"interest_divisor"`
	MaxInterest           float64 `json:"max_interest"`
}

// CheatConfig holds the detection model for card manipulation.
type CheatConfig struct {
	Enabled                bool    `json:"enabled"`
	BaseDetection          float64 `json:"base_detection"`
	RankSwapPenalty        float64 `json:"rank_swap_penalty"`
	ExperiencePivot        float64 `json:"experience_pivot"`
	ExperienceCeiling      float64 `json:"experience_ceiling"`
	NoviceBonus            float64 `json:"novice_bonus"`
	VeteranDiscount        float64 `json:"veteran_discount"`
	LowStackThreshold      int64   `json:"low_stack_threshold"`
	AlertIncrement         float64 `json:"alert_increment"`
	AlertDecay             float64 `json:"alert_decay"`
	BlockThreshold         float64 `json:"block_threshold"`
	BlockExemptExperience  float64 `json:"block_exempt_experience"`
	MinDetection           float64 `json:"min_detection"`
	MaxDetection           float64 `json:"max_detection"`
	SuccessExperience      float64 `json:"success_experience"`
	DetectedExperienceLoss float64 `json:"detected_experience_loss"`
}

// Item is an entry of the auction catalog.
type Item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Effect string `json:"effect"` // "revive" or "bribe_pass"
}

// AuctionConfig controls between-hand item auctions.
type AuctionConfig struct {
	Enabled      bool   `json:"enabled"`
	Items        []Item `json:"items"`
	MaxRounds    int    `json:"max_rounds"`
	StartBid     int64  `json:"start_bid"`
	MinIncrement int64  `json:"min_increment"`
}

// BribeConfig controls the bribe action.
type BribeConfig struct {
	Enabled      bool    `json:"enabled"`
	RequiredItem string  `json:"required_item"`
	MinAmount    int64   `json:"min_amount"`
	AlertPerChip float64 `json:"alert_per_chip"`
}

// OrchestratorConfig controls agent call deadlines.
type OrchestratorConfig struct {
	DecisionTimeoutMs int `json:"decision_timeout_ms"`
	VoteTimeoutMs     int `json:"vote_timeout_ms"`
	MaxReprompts      int `json:"max_reprompts"`
}

// DecisionTimeout returns the per-decision deadline.
func (o OrchestratorConfig) DecisionTimeout() time.Duration {
	return time.Duration(o.DecisionTimeoutMs) * time.Millisecond
}

// VoteTimeout returns the deadline for votes and defenses.
func (o OrchestratorConfig) VoteTimeout() time.Duration {
	return time.Duration(o.VoteTimeoutMs) * time.Millisecond
}

// GameConfig is the process-wide game configuration.
type GameConfig struct {
	Table        TableConfig        `json:"table"`
	Vault        VaultConfig        `json:"vault"`
	Cheat        CheatConfig        `json:"cheat"`
	Auction      AuctionConfig      `json:"auction"`
	Bribe        BribeConfig        `json:"bribe"`
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	// PersonaPoolPath points at the persona definitions JSON.
	PersonaPoolPath string `json:"persona_pool_path"`
}

var (
	ErrTooFewPlayers   = errors.New("table needs at least two players")
	ErrNoBettingRounds = errors.New("max_betting_rounds must be positive")
	ErrNoDeadline      = errors.New("decision_timeout_ms must be positive")
)

// Default returns the built-in configuration.
func Default() GameConfig {
	return GameConfig{
		Table: TableConfig{
			Players:             3,
			InitialChips:        300,
			BaseBet:             10,
			AnteStep:            20,
			AnteStepEvery:       5,
			MinRaise:            10,
			MinBettingRounds:    1,
			MaxBettingRounds:    3,
			MaxHands:            100,
			CompareStakePercent: 50,
			AccuseFeeMultiplier: 10,
			AccuseMinFee:        10,
			ReviveChips:         100,
		},
		Vault: VaultConfig{
			MinExperience:         20,
			MaxCollateralFraction: 0.5,
			CollateralRatio:       0.25,
			BaseLimit:             400,
			LimitPerExperience:    25,
			MaxLimitBonus:         3000,
			MinTermHands:          2,
			DefaultTermHands:      3,
			MaxTermHands:          6,
			BaseInterest:          0.16,
			InterestSlope:         0.35,
			InterestExperienceCap: 120,
			InterestDivisor:       400,
			MaxInterest:           0.45,
		},
		Cheat: CheatConfig{
			Enabled:                true,
			BaseDetection:          0.16,
			RankSwapPenalty:        0.08,
			ExperiencePivot:        55,
			ExperienceCeiling:      130,
			NoviceBonus:            0.50,
			VeteranDiscount:        0.40,
			LowStackThreshold:      300,
			AlertIncrement:         25,
			AlertDecay:             3,
			BlockThreshold:         100,
			BlockExemptExperience:  100,
			MinDetection:           0.05,
			MaxDetection:           0.95,
			SuccessExperience:      3,
			DetectedExperienceLoss: 5,
		},
		Auction: AuctionConfig{
			Enabled: true,
			Items: []Item{
				{ID: "revive_token", Name: "Second Wind", Effect: "revive"},
				{ID: "bribe_pass", Name: "Pit Boss Favor", Effect: "bribe_pass"},
			},
			MaxRounds:    5,
			StartBid:     1,
			MinIncrement: 20,
		},
		Bribe: BribeConfig{
			Enabled:      true,
			RequiredItem: "bribe_pass",
			MinAmount:    10,
			AlertPerChip: 0.5,
		},
		Orchestrator: OrchestratorConfig{
			DecisionTimeoutMs: 2000,
			VoteTimeoutMs:     2000,
			MaxReprompts:      1,
		},
		PersonaPoolPath: "data/personas.json",
	}
}

// Validate rejects configurations the engine cannot run.
func (c GameConfig) Validate() error {
	if c.Table.Players < 2 {
		return ErrTooFewPlayers
	}
	if c.Table.MaxBettingRounds <= 0 {
		return ErrNoBettingRounds
	}
	if c.Orchestrator.DecisionTimeoutMs <= 0 {
		return ErrNoDeadline
	}
	return nil
}

// ItemByEffect returns the first catalog item with the given effect.
func (c GameConfig) ItemByEffect(effect string) (Item, bool) {
	for _, it := range c.Auction.Items {
		if it.Effect == effect {
			return it, true
		}
	}
	return Item{}, false
}

// Parse decodes JSON over the defaults, so omitted keys keep their default values.
func Parse(data []byte) (GameConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return GameConfig{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return GameConfig{}, fmt.Errorf("invalid game config: %w", err)
	}
	return c, nil
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path. Only the first call reads the file.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or the defaults when nothing was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return Default()
	}
	return *cfg
}
