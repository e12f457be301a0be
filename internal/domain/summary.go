package domain

import "time"

// PlayerSnapshot is a player's terminal standing.
type PlayerSnapshot struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Seat       int        `json:"seat"`
	Chips      int64      `json:"chips"`
	Alive      bool       `json:"alive"`
	Experience float64    `json:"experience"`
	CheatStats CheatStats `json:"cheat_stats"`
}

// FinalSummary is the frozen record of a finished game. Treat it as read-only.
type FinalSummary struct {
	GameID      string           `json:"game_id"`
	Phase       Phase            `json:"phase"`
	WinnerID    string           `json:"winner_id"`
	WinnerSeat  int              `json:"winner_seat"`
	FinalPot    int64            `json:"final_pot"`
	TotalRounds int              `json:"total_rounds"`
	Players     []PlayerSnapshot `json:"players"`
	CapturedAt  time.Time        `json:"captured_at"`
}

// Player returns the snapshot for id.
func (s *FinalSummary) Player(id string) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}
