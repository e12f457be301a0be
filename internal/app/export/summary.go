// Package export renders finished games for transports and archives.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/domain"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// SummaryVersion is bumped whenever the exported shape changes.
const SummaryVersion = 1

// CheatStats is the exported form of domain.CheatStats.
type CheatStats struct {
	Attempts      int `json:"attempts"`
	Successes     int `json:"successes"`
	MindgameMoves int `json:"mindgameMoves"`
}

// PlayerResult is one player's line in an exported summary.
type PlayerResult struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Chips      int64      `json:"chips"`
	Alive      bool       `json:"alive"`
	Experience float64    `json:"experience"`
	CheatStats CheatStats `json:"cheatStats"`
}

// Summary is the transport shape of a FinalSummary.
type Summary struct {
	Version     int            `json:"version"`
	GameID      string         `json:"gameId"`
	Phase       string         `json:"phase"`
	WinnerID    string         `json:"winnerId"`
	FinalPot    int64          `json:"finalPot"`
	TotalRounds int            `json:"totalRounds"`
	Players     []PlayerResult `json:"players"`
	CapturedAt  string         `json:"capturedAt"`
}

// FromSummary copies a frozen summary into its export shape.
func FromSummary(s *domain.FinalSummary) Summary {
	out := Summary{
		Version:     SummaryVersion,
		GameID:      s.GameID,
		Phase:       string(s.Phase),
		WinnerID:    s.WinnerID,
		FinalPot:    s.FinalPot,
		TotalRounds: s.TotalRounds,
		Players:     make([]PlayerResult, 0, len(s.Players)),
		CapturedAt:  s.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, p := range s.Players {
		out.Players = append(out.Players, PlayerResult{
			ID:         p.ID,
			Name:       p.Name,
			Chips:      p.Chips,
			Alive:      p.Alive,
			Experience: p.Experience,
			CheatStats: CheatStats{
				Attempts:      p.CheatStats.Attempts,
				Successes:     p.CheatStats.Successes,
				MindgameMoves: p.CheatStats.MindgameMoves,
			},
		})
	}
	return out
}

// Digest is the hex SHA-256 of the summary's JSON encoding.
func (s Summary) Digest() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Struct renders the summary as a protobuf Struct.
func (s Summary) Struct() (*structpb.Struct, error) {
	return toStruct(s)
}

// EventStruct renders a log entry as a protobuf Struct.
func EventStruct(e eventlog.Entry) (*structpb.Struct, error) {
	return toStruct(e)
}

// Marshal encodes a Struct with protojson, the encoding spectators receive.
func Marshal(st *structpb.Struct) ([]byte, error) {
	return (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(st)
}

// MarshalSummary is FromSummary followed by Struct and Marshal.
func MarshalSummary(s *domain.FinalSummary) ([]byte, error) {
	st, err := FromSummary(s).Struct()
	if err != nil {
		return nil, err
	}
	return Marshal(st)
}

// toStruct goes through JSON so struct tags and nested values map the same way
// they do for every other client.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to build struct for %T: %w", v, err)
	}
	return st, nil
}
