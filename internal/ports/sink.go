package ports

import (
	"context"
	"time"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/domain"
)

// GameArchive is everything persisted about a finished game.
type GameArchive struct {
	GameID     string               `json:"game_id"`
	Header     string               `json:"header"`
	HandCount  int                  `json:"hand_count"`
	Transcript []string             `json:"transcript"`
	Public     []eventlog.Entry     `json:"public"`
	Secret     []eventlog.Entry     `json:"secret"`
	Cheat      []eventlog.Entry     `json:"cheat"`
	Summary    *domain.FinalSummary `json:"summary,omitempty"`
	ClosedAt   time.Time            `json:"closed_at"`
}

// LogSink stores game archives. Implementations decide where.
type LogSink interface {
	Append(ctx context.Context, archive GameArchive) error
}
