package nakama

const (
	// RpcCreateAIMatch finds a running AI table or starts a new one.
	RpcCreateAIMatch = "create_ai_match"
	// RpcGetFinalSummary returns the last finished game of a match.
	RpcGetFinalSummary = "get_final_summary"
	// RpcVerifySummary checks a signed summary receipt.
	RpcVerifySummary = "verify_summary"

	// MatchNameZhajinhua is the authoritative match handler name registered with Nakama.
	MatchNameZhajinhua = "zhajinhua_match"

	// ArchiveCollection is the storage collection holding finished game archives.
	ArchiveCollection = "zhajinhua_archives"

	receiptIssuer = "zhajinhua"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpRequestState int64 = 1

	// Server -> Client events
	OpTableState int64 = 101
	OpEvent      int64 = 102
	OpReasoning  int64 = 103
	OpSummary    int64 = 104
)

// Runtime env keys read in MatchInit and the RPCs.
const (
	EnvPlayers           = "zhajinhua_players"
	EnvInitialChips      = "zhajinhua_initial_chips"
	EnvMaxHands          = "zhajinhua_max_hands"
	EnvPaceTicks         = "zhajinhua_pace_ticks"
	EnvGames             = "zhajinhua_games"
	EnvDecisionTimeoutMs = "zhajinhua_decision_timeout_ms"
	EnvReceiptSecret     = "zhajinhua_receipt_secret"
)

// Signals understood by MatchSignal.
const (
	SignalSummary = "summary"
	SignalState   = "state"
)

const (
	gameConfigPath  = "data/game_config.json"
	personaPoolPath = "data/personas.json"
)
