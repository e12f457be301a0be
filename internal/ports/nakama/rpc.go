package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"zhajinhua/internal/app/export"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Nakama RPC error codes (gRPC status codes).
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeFailedPrecond   = 9
	codeInternal        = 13
)

// CreateMatchRequest is the optional payload of create_ai_match.
type CreateMatchRequest struct {
	Players      int   `json:"players,omitempty"`
	InitialChips int64 `json:"initial_chips,omitempty"`
	MaxHands     int   `json:"max_hands,omitempty"`
	Games        int   `json:"games,omitempty"`
	PaceTicks    int   `json:"pace_ticks,omitempty"`
	Seed         int64 `json:"seed,omitempty"`
	// Reuse joins an already running table instead of starting a new one.
	Reuse bool `json:"reuse,omitempty"`
}

// CreateMatchResponse is returned to clients after create_ai_match.
type CreateMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// SummaryRequest identifies the game for get_final_summary and verify_summary.
type SummaryRequest struct {
	MatchID string `json:"match_id,omitempty"`
	GameID  string `json:"game_id,omitempty"`
	Receipt string `json:"receipt,omitempty"`
}

// VerifyResponse reports a receipt check.
type VerifyResponse struct {
	Valid       bool   `json:"valid"`
	GameID      string `json:"game_id,omitempty"`
	WinnerID    string `json:"winner_id,omitempty"`
	FinalPot    int64  `json:"final_pot,omitempty"`
	TotalRounds int    `json:"total_rounds,omitempty"`
	// Archived is set when the receipt was also checked against the stored game.
	Archived bool   `json:"archived"`
	Reason   string `json:"reason,omitempty"`
}

// MatchCreator is the part of runtime.NakamaModule create_ai_match needs.
type MatchCreator interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

// MatchSignaler is the part of runtime.NakamaModule get_final_summary needs.
type MatchSignaler interface {
	MatchSignal(ctx context.Context, id string, data string) (string, error)
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateAIMatch, rpcCreateAIMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcGetFinalSummary, rpcGetFinalSummary); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVerifySummary, rpcVerifySummary)
}

func rpcCreateAIMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return createAIMatch(ctx, logger, nk, payload)
}

func createAIMatch(ctx context.Context, logger runtime.Logger, nk MatchCreator, payload string) (string, error) {
	var req CreateMatchRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", codeInvalidArgument)
		}
	}

	if req.Reuse {
		query := fmt.Sprintf("+label.game:%s +label.%s:T", matchLabelGame, MatchLabelKey_Open)
		matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
		if err != nil {
			logger.Error("MatchList error: %v", err)
			return "", err
		}
		if len(matches) > 0 {
			return marshalResponse(CreateMatchResponse{MatchID: matches[0].MatchId, IsNew: false})
		}
	}

	params := map[string]interface{}{}
	set := func(key string, v int64) {
		if v > 0 {
			params[key] = v
		}
	}
	set("players", int64(req.Players))
	set("initial_chips", req.InitialChips)
	set("max_hands", int64(req.MaxHands))
	set("games", int64(req.Games))
	set("pace_ticks", int64(req.PaceTicks))
	set("seed", req.Seed)

	matchID, err := nk.MatchCreate(ctx, MatchNameZhajinhua, params)
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}
	logger.Info("createAIMatch: Created AI table %s", matchID)
	return marshalResponse(CreateMatchResponse{MatchID: matchID, IsNew: true})
}

func rpcGetFinalSummary(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return getFinalSummary(ctx, logger, nk, NewStorageSink(nk), receiptSigner(ctx), payload)
}

// getFinalSummary asks the running match first and falls back to the archive.
func getFinalSummary(ctx context.Context, logger runtime.Logger, nk MatchSignaler, archives *StorageSink, signer *export.Signer, payload string) (string, error) {
	req, err := parseSummaryRequest(payload)
	if err != nil {
		return "", err
	}
	if req.MatchID == "" && req.GameID == "" {
		return "", runtime.NewError("match_id or game_id required", codeInvalidArgument)
	}

	if req.MatchID != "" {
		result, err := nk.MatchSignal(ctx, req.MatchID, SignalSummary)
		if err != nil {
			logger.Warn("getFinalSummary: Signal to %s failed: %v", req.MatchID, err)
		} else if result != "" {
			return result, nil
		}
	}

	if req.GameID == "" {
		return "", runtime.NewError("Summary not found", codeNotFound)
	}
	archive, err := archives.Load(ctx, req.GameID)
	if errors.Is(err, ErrArchiveNotFound) || (err == nil && archive.Summary == nil) {
		return "", runtime.NewError("Summary not found", codeNotFound)
	}
	if err != nil {
		logger.Error("getFinalSummary: %v", err)
		return "", runtime.NewError("Internal error", codeInternal)
	}

	summary := export.FromSummary(archive.Summary)
	receipt := ""
	if signer != nil {
		if receipt, err = signer.Sign(summary); err != nil {
			logger.Warn("getFinalSummary: Failed to sign summary: %v", err)
		}
	}
	data, err := summaryPayload(summary, receipt)
	if err != nil {
		logger.Error("getFinalSummary: Failed to marshal summary: %v", err)
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(data), nil
}

func rpcVerifySummary(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return verifySummary(ctx, logger, NewStorageSink(nk), receiptSigner(ctx), payload)
}

// verifySummary checks the receipt signature and, when a game id is given,
// that it was issued for the archived summary of that game.
func verifySummary(ctx context.Context, logger runtime.Logger, archives *StorageSink, signer *export.Signer, payload string) (string, error) {
	req, err := parseSummaryRequest(payload)
	if err != nil {
		return "", err
	}
	if req.Receipt == "" {
		return "", runtime.NewError("receipt required", codeInvalidArgument)
	}
	if signer == nil {
		return "", runtime.NewError("Receipts are not enabled", codeFailedPrecond)
	}

	receipt, err := signer.Verify(req.Receipt)
	if err != nil {
		logger.Debug("verifySummary: Rejected receipt: %v", err)
		return marshalResponse(VerifyResponse{Valid: false, Reason: err.Error()})
	}
	resp := VerifyResponse{
		Valid:       true,
		GameID:      receipt.GameID,
		WinnerID:    receipt.WinnerID,
		FinalPot:    receipt.FinalPot,
		TotalRounds: receipt.TotalRounds,
	}

	if req.GameID == "" {
		return marshalResponse(resp)
	}
	archive, err := archives.Load(ctx, req.GameID)
	if err != nil || archive.Summary == nil {
		resp.Valid = false
		resp.Reason = "game not archived"
		return marshalResponse(resp)
	}
	resp.Archived = true
	if !receipt.Matches(export.FromSummary(archive.Summary)) {
		resp.Valid = false
		resp.Reason = "receipt does not match archived summary"
	}
	return marshalResponse(resp)
}

// receiptSigner builds the signer from the runtime env, or nil when no secret is set.
func receiptSigner(ctx context.Context) *export.Signer {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if secret := env[EnvReceiptSecret]; secret != "" {
		return export.NewSigner(secret, receiptIssuer, 0)
	}
	return nil
}

func parseSummaryRequest(payload string) (SummaryRequest, error) {
	var req SummaryRequest
	if payload == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return req, runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	return req, nil
}

func marshalResponse(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(b), nil
}
