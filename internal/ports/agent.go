package ports

import (
	"context"
	"errors"

	"zhajinhua/internal/app"
	"zhajinhua/internal/app/vault"
	"zhajinhua/internal/domain"
)

// ErrAgent is the generic failure an agent may report. The orchestrator treats it like a timeout.
var ErrAgent = errors.New("agent failed")

// Stream receives an agent's partial reasoning while a call is in flight.
// Start is delivered at most once, before the first chunk. Implementations never fail
// the caller and may be used from any goroutine.
type Stream interface {
	Start()
	Chunk(text string)
}

// DecisionRequest asks an agent for its next action. View.Self.Legal lists what is allowed.
type DecisionRequest struct {
	PlayerID string
	Seq      uint64
	Attempt  int
	Rejected error // why the previous attempt was refused, if any
	View     app.TableView
}

// SecretMessage is a private note sent alongside a decision.
type SecretMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Decision is an agent's answer to a DecisionRequest. Loan, Message and Cheat are
// optional side moves applied before Action.
type Decision struct {
	Action  domain.Action     `json:"action"`
	Reason  string            `json:"reason,omitempty"`
	Speech  string            `json:"speech,omitempty"`
	Loan    *vault.Request    `json:"loan,omitempty"`
	Message *SecretMessage    `json:"message,omitempty"`
	Cheat   *domain.CheatMove `json:"cheat,omitempty"`
}

// DefenseRequest asks an accused player to argue their case.
type DefenseRequest struct {
	PlayerID    string
	Accuser     string
	CoDefendant string
	View        app.TableView
}

// Defense is an accused player's statement to the jury.
type Defense struct {
	Text string `json:"text"`
}

// VoteRequest asks a juror for a verdict.
type VoteRequest struct {
	PlayerID string
	Accuser  string
	Targets  [2]string
	Defenses map[string]string
	View     app.TableView
}

// Vote is a juror's verdict.
type Vote struct {
	Verdict domain.Verdict `json:"verdict"`
	Reason  string         `json:"reason,omitempty"`
}

// Agent is the AI port driving a single seat. Calls may block; the orchestrator
// bounds each one with a deadline and abandons it when the deadline passes.
type Agent interface {
	Decide(ctx context.Context, req DecisionRequest, stream Stream) (Decision, error)
	Defend(ctx context.Context, req DefenseRequest, stream Stream) (Defense, error)
	Vote(ctx context.Context, req VoteRequest, stream Stream) (Vote, error)
}
