package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"zhajinhua/internal/app"
	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/export"
	"zhajinhua/internal/bot"
	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/orchestrator"
	"zhajinhua/internal/ports"
	"zhajinhua/internal/table"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MatchLabelKey_Open = "open" // Key for the spectator-open flag in the match label
	matchLabelGame     = "zhajinhua"

	defaultPaceTicks = 1
	defaultGames     = 1
	maxSpectators    = 64
	tickRate         = 2
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Tick       int64                       `json:"tick"`         // Current tick of the match
	PaceTicks  int64                       `json:"pace_ticks"`   // Ticks between two table steps
	NextStepAt int64                       `json:"next_step_at"` // Tick of the next table step
	MaxGames   int                         `json:"max_games"`    // Games to play before the table closes
	Done       bool                        `json:"done"`         // All games played
	LastGameID string                      `json:"last_game_id"` // Game id of the last archived game
	Receipt    string                      `json:"receipt"`      // Signed receipt of the last summary
	Summary    *export.Summary             `json:"summary"`      // Last finished game
	Presences  map[string]runtime.Presence `json:"-"`            // Map UserId -> Presence of spectators
	Table      *table.Table                `json:"-"`            // Engine, agents and orchestrator
	Sink       ports.LogSink               `json:"-"`            // Archive destination
	Signer     *export.Signer              `json:"-"`            // nil when no receipt secret is configured

	reasoning *reasoningBuffer
}

// matchSettings is the resolved configuration for one match.
type matchSettings struct {
	Config    config.GameConfig
	PaceTicks int64
	Games     int
	Seed      int64
	Secret    string
}

// reasoningBuffer collects streamed agent output between ticks. Agents write
// from their own goroutines; the match loop drains it.
type reasoningBuffer struct {
	mu     sync.Mutex
	events []orchestrator.StreamEvent
}

func (b *reasoningBuffer) add(ev orchestrator.StreamEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *reasoningBuffer) drain() []orchestrator.StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}
	cfg := config.GetGameConfig()
	personas := personaPoolPath
	if cfg.PersonaPoolPath != "" {
		personas = cfg.PersonaPoolPath
	}
	if err := bot.LoadPersonas(personas); err != nil {
		logger.Warn("MatchInit: Could not load personas: %v", err)
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	settings := readSettings(cfg, env, params)

	state, err := newMatchState(settings, NewStorageSink(nk), logger)
	if err != nil {
		logger.Error("MatchInit: Failed to build table: %v", err)
		return nil, 0, ""
	}

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	logger.Info("MatchInit: Table ready with %d agents, %d game(s), game %s", settings.Config.Table.Players, settings.Games, state.Table.Engine.GameID())
	return state, tickRate, label
}

// readSettings layers runtime env overrides and then match params over base.
func readSettings(base config.GameConfig, env map[string]string, params map[string]interface{}) matchSettings {
	s := matchSettings{
		Config:    base,
		PaceTicks: defaultPaceTicks,
		Games:     defaultGames,
		Seed:      time.Now().UnixNano(),
	}

	apply := func(key string, v int64) {
		if v <= 0 {
			return
		}
		switch key {
		case EnvPlayers, "players":
			s.Config.Table.Players = int(v)
		case EnvInitialChips, "initial_chips":
			s.Config.Table.InitialChips = v
		case EnvMaxHands, "max_hands":
			s.Config.Table.MaxHands = int(v)
		case EnvPaceTicks, "pace_ticks":
			s.PaceTicks = v
		case EnvGames, "games":
			s.Games = int(v)
		case EnvDecisionTimeoutMs, "decision_timeout_ms":
			s.Config.Orchestrator.DecisionTimeoutMs = int(v)
		case "seed":
			s.Seed = v
		}
	}

	for _, key := range []string{EnvPlayers, EnvInitialChips, EnvMaxHands, EnvPaceTicks, EnvGames, EnvDecisionTimeoutMs} {
		if val, ok := env[key]; ok {
			if i, err := strconv.ParseInt(val, 10, 64); err == nil {
				apply(key, i)
			}
		}
	}
	s.Secret = env[EnvReceiptSecret]

	for key, raw := range params {
		if v, ok := intParam(raw); ok {
			apply(key, v)
		}
	}
	return s
}

// intParam accepts the numeric shapes Nakama hands match params over as.
func intParam(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func newMatchState(settings matchSettings, sink ports.LogSink, logger runtime.Logger) (*MatchState, error) {
	buffer := &reasoningBuffer{}
	tbl, err := table.New(settings.Config, table.Options{
		Seed: settings.Seed,
		Callbacks: orchestrator.Callbacks{
			Mode:    orchestrator.Immediate,
			OnStart: buffer.add,
			OnChunk: buffer.add,
		},
	}, logger)
	if err != nil {
		return nil, err
	}

	state := &MatchState{
		PaceTicks: max(1, settings.PaceTicks),
		MaxGames:  max(1, settings.Games),
		Presences: make(map[string]runtime.Presence),
		Table:     tbl,
		Sink:      sink,
		reasoning: buffer,
	}
	if settings.Secret != "" {
		state.Signer = export.NewSigner(settings.Secret, receiptIssuer, 0)
	} else {
		logger.Warn("MatchInit: %s not set, summaries will be unsigned.", EnvReceiptSecret)
	}
	return state, nil
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if len(matchState.Presences) >= maxSpectators {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		logger.Debug("MatchJoin: Spectator %s joined.", p.GetUserId())
		mh.sendTableState(matchState, dispatcher, logger, p)
	}
	return matchState
}

// MatchLeave is called when one or more spectators leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		logger.Debug("MatchLeave: Spectator %s left.", p.GetUserId())
	}

	if shouldTerminate(matchState) {
		logger.Info("MatchLeave: Terminating finished match with no spectators.")
		matchState.Table.Close()
		return nil
	}
	return matchState
}

// shouldTerminate reports whether every game is played and nobody is watching.
func shouldTerminate(state *MatchState) bool {
	return state.Done && len(state.Presences) == 0
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpRequestState:
			mh.sendTableState(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.Done {
		if shouldTerminate(matchState) {
			logger.Info("MatchLoop: Terminating finished match with no spectators.")
			matchState.Table.Close()
			return nil
		}
		return matchState
	}

	if tick < matchState.NextStepAt {
		return matchState
	}
	matchState.NextStepAt = tick + matchState.PaceTicks

	mh.step(ctx, matchState, dispatcher, logger)
	return matchState
}

// step advances the table once and pushes everything it produced to spectators.
func (mh *matchHandler) step(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	prevHand := state.Table.Engine.State().HandCount
	events, err := state.Table.Step(ctx)
	mh.flushReasoning(state, dispatcher, logger)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}

	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrGameOver):
	default:
		logger.Error("MatchLoop: Step failed: %v", err)
		return
	}

	if state.Table.Phase() == domain.PhaseGameOver {
		mh.finishGame(ctx, state, dispatcher, logger)
		return
	}
	if state.Table.Engine.State().HandCount != prevHand {
		mh.updateLabel(state, dispatcher, logger)
	}
}

// finishGame archives the game, signs and broadcasts its summary, and re-seats
// the table for the next game.
func (mh *matchHandler) finishGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	report, err := state.Table.Finish(ctx, state.Sink)
	if err != nil {
		logger.Warn("finishGame: Reset completed with errors: %v", err)
	}
	if report.Summary == nil {
		logger.Error("finishGame: No summary captured for game %s", report.Archive.GameID)
	} else {
		summary := export.FromSummary(report.Summary)
		state.Summary = &summary
		state.LastGameID = summary.GameID
		state.Receipt = ""
		if state.Signer != nil {
			receipt, err := state.Signer.Sign(summary)
			if err != nil {
				logger.Error("finishGame: Failed to sign summary: %v", err)
			} else {
				state.Receipt = receipt
			}
		}

		data, err := summaryPayload(summary, state.Receipt)
		if err != nil {
			logger.Error("finishGame: Failed to marshal summary: %v", err)
		} else {
			dispatcher.BroadcastMessage(OpSummary, data, nil, nil, true)
		}
		logger.Info("finishGame: Game %s won by %s after %d rounds", summary.GameID, summary.WinnerID, summary.TotalRounds)
	}

	if state.Table.Games() >= state.MaxGames {
		state.Done = true
	}
	mh.updateLabel(state, dispatcher, logger)
}

// summaryPayload renders a summary and its receipt as the protojson spectators receive.
func summaryPayload(summary export.Summary, receipt string) ([]byte, error) {
	st, err := summary.Struct()
	if err != nil {
		return nil, err
	}
	st.Fields["receipt"] = structpb.NewStringValue(receipt)
	return export.Marshal(st)
}

// broadcastEvent forwards public log entries to spectators. Secret and cheat
// entries stay in the archive.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	if ev.Category != eventlog.CategoryPublic {
		return
	}

	st, err := export.EventStruct(ev)
	if err != nil {
		logger.Error("Failed to convert event %v: %v", ev.Kind, err)
		return
	}
	bytes, err := export.Marshal(st)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Intended recipients are agents, not spectators; never widen the audience.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(OpEvent, bytes, recipients, nil, true)
}

// flushReasoning sends buffered agent output in arrival order.
func (mh *matchHandler) flushReasoning(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, ev := range state.reasoning.drain() {
		payload := map[string]interface{}{
			"playerId": ev.PlayerID,
			"kind":     ev.Kind,
			"text":     ev.Text,
			"start":    ev.Text == "",
		}
		if p, ok := state.Table.Engine.Player(ev.PlayerID); ok {
			payload["name"] = p.Name
		}
		st, err := structpb.NewStruct(payload)
		if err != nil {
			logger.Error("Failed to build reasoning payload: %v", err)
			continue
		}
		bytes, err := export.Marshal(st)
		if err != nil {
			logger.Error("Failed to marshal reasoning payload: %v", err)
			continue
		}
		dispatcher.BroadcastMessage(OpReasoning, bytes, nil, nil, true)
	}
}

// tableState is the snapshot a spectator receives on join or request.
type tableState struct {
	View     app.TableView     `json:"view"`
	Personas map[string]string `json:"personas"`
	Games    int               `json:"games"`
	MaxGames int               `json:"maxGames"`
	Done     bool              `json:"done"`
}

func tableStateJSON(state *MatchState) ([]byte, error) {
	snap := tableState{
		View:     state.Table.Engine.SpectatorView(),
		Personas: make(map[string]string),
		Games:    state.Table.Games(),
		MaxGames: state.MaxGames,
		Done:     state.Done,
	}
	for _, p := range state.Table.Engine.Players() {
		if persona, ok := state.Table.Persona(p.ID); ok {
			snap.Personas[p.ID] = persona.Text
		}
	}
	return json.Marshal(snap)
}

// sendTableState sends the current snapshot to one spectator.
func (mh *matchHandler) sendTableState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence) {
	bytes, err := tableStateJSON(state)
	if err != nil {
		logger.Error("Failed to marshal table state: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpTableState, bytes, []runtime.Presence{presence}, nil, true)
}

// matchLabel renders the label Nakama indexes for match listing.
func matchLabel(state *MatchState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		"game":               matchLabelGame,
		"phase":              string(state.Table.Phase()),
		"hand":               state.Table.Engine.State().HandCount,
		"games":              state.Table.Games(),
		MatchLabelKey_Open: !state.Done,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminating with %d grace seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		matchState.Table.Close()
	}
	return state
}

// MatchSignal answers summary and state queries from RPCs.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, ""
	}

	switch data {
	case SignalSummary:
		if matchState.Summary == nil {
			return matchState, ""
		}
		bytes, err := summaryPayload(*matchState.Summary, matchState.Receipt)
		if err != nil {
			logger.Error("MatchSignal: Failed to marshal summary: %v", err)
			return matchState, ""
		}
		return matchState, string(bytes)
	case SignalState:
		bytes, err := tableStateJSON(matchState)
		if err != nil {
			logger.Error("MatchSignal: Failed to marshal state: %v", err)
			return matchState, ""
		}
		return matchState, string(bytes)
	default:
		logger.Warn("MatchSignal: Unknown signal %q", data)
		return matchState, ""
	}
}
