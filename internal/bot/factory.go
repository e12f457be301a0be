package bot

import (
	"fmt"
)

// BotLevel selects how sophisticated a bot plays.
type BotLevel int

const (
	BotLevelCautious BotLevel = iota
	BotLevelBalanced
	BotLevelShark
)

var levelNames = [...]string{"cautious", "balanced", "shark"}

func (l BotLevel) String() string {
	if l < BotLevelCautious || l > BotLevelShark {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel maps a level name to a BotLevel. An empty name means balanced.
func ParseLevel(name string) (BotLevel, error) {
	if name == "" {
		return BotLevelBalanced, nil
	}
	for i, n := range levelNames {
		if n == name {
			return BotLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown bot level: %q", name)
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelCautious, BotLevelBalanced:
		return &HeuristicBot{Tuning: levelTuning[level]}, nil
	case BotLevelShark:
		return &SharkBot{HeuristicBot: HeuristicBot{Tuning: levelTuning[level]}}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
