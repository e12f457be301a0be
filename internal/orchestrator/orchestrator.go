// Package orchestrator drives a Zhajinhua table: it asks the engine whose turn it
// is, calls that seat's agent under a deadline, and applies the answer.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zhajinhua/internal/app"
	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/reset"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// EventForcedAction records a fallback chosen by the orchestrator.
const EventForcedAction app.EventKind = "forced_action"

// Orchestrator owns the control loop for one engine. Step and Run must be called
// from a single goroutine; agent calls and stream delivery run on their own.
type Orchestrator struct {
	engine     *app.Engine
	agents     map[string]ports.Agent
	transcript *eventlog.Transcript
	session    *reset.Session
	logger     runtime.Logger
	callbacks  Callbacks
	dispatch   *dispatcher

	decisionTimeout time.Duration
	voteTimeout     time.Duration
	maxReprompts    int
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithCallbacks sets the stream notifiers.
func WithCallbacks(cbs Callbacks) Option {
	return func(o *Orchestrator) { o.callbacks = cbs }
}

// WithTranscript records events and streamed reasoning into t.
func WithTranscript(t *eventlog.Transcript) Option {
	return func(o *Orchestrator) { o.transcript = t }
}

// WithSession caches finished hands in s.
func WithSession(s *reset.Session) Option {
	return func(o *Orchestrator) { o.session = s }
}

// WithTimeouts overrides the configured decision and vote deadlines.
func WithTimeouts(decision, vote time.Duration) Option {
	return func(o *Orchestrator) {
		o.decisionTimeout = decision
		o.voteTimeout = vote
	}
}

// New builds an orchestrator for engine. agents maps player ids to their agents;
// a seat without an agent always takes the fallback action.
func New(engine *app.Engine, agents map[string]ports.Agent, logger runtime.Logger, opts ...Option) *Orchestrator {
	oc := engine.Config().Orchestrator
	o := &Orchestrator{
		engine:          engine,
		agents:          agents,
		logger:          logger,
		decisionTimeout: oc.DecisionTimeout(),
		voteTimeout:     oc.VoteTimeout(),
		maxReprompts:    max(0, oc.MaxReprompts),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.dispatch = newDispatcher(o.callbacks, logger)
	return o
}

// Engine returns the engine being driven.
func (o *Orchestrator) Engine() *app.Engine { return o.engine }

// Close flushes deferred notifications. The orchestrator must not be used afterwards.
func (o *Orchestrator) Close() {
	o.dispatch.close()
}

// Step advances the table by one decision point and returns the events it produced.
func (o *Orchestrator) Step(ctx context.Context) ([]app.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		events []app.Event
		err    error
	)
	switch o.engine.Phase() {
	case domain.PhaseIdle, domain.PhaseHandComplete:
		if bidder, ok := o.engine.AuctionBidder(); ok {
			events, err = o.decide(ctx, bidder)
		} else {
			events, err = o.engine.StartHand()
		}
	case domain.PhaseBetting:
		if trial, ok := o.engine.PendingTrial(); ok {
			events, err = o.runTrial(ctx, trial)
		} else if p, ok := o.engine.ActivePlayer(); ok {
			events, err = o.decide(ctx, p)
		} else {
			err = fmt.Errorf("betting without an active player: %w", app.ErrWrongPhase)
		}
	case domain.PhaseShowdown:
		events, err = o.engine.EvaluateShowdown()
	case domain.PhaseGameOver:
		return nil, ErrGameOver
	default:
		err = fmt.Errorf("unexpected phase %s: %w", o.engine.Phase(), app.ErrWrongPhase)
	}

	o.record(events)
	return events, err
}

// Run steps until the game is over and returns the final summary.
func (o *Orchestrator) Run(ctx context.Context) (*domain.FinalSummary, error) {
	for o.engine.Phase() != domain.PhaseGameOver {
		if _, err := o.Step(ctx); err != nil {
			return nil, err
		}
	}
	return o.engine.FinalSummary()
}

// Play runs a full game and hands the table to the reset manager.
func (o *Orchestrator) Play(ctx context.Context, m *reset.Manager, sink ports.LogSink) (reset.Report, error) {
	if _, err := o.Run(ctx); err != nil {
		return reset.Report{}, err
	}
	return m.CompleteGameReset(ctx, sink)
}

// decide runs one decision for p, re-prompting on rejected actions and falling
// back to fold (or pass during an auction) when the agent cannot answer.
func (o *Orchestrator) decide(ctx context.Context, p *domain.Player) ([]app.Event, error) {
	fallback := domain.Fold()
	if _, ok := o.engine.OpenAuction(); ok {
		fallback = domain.Action{Kind: domain.ActionPass}
	}
	agent, ok := o.agents[p.ID]
	if !ok {
		return o.force(p, fallback, CauseNoAgent, nil)
	}

	seq := o.engine.DecisionSeq()
	var (
		events   []app.Event
		rejected error
		sideDone bool
	)
	for attempt := 0; attempt <= o.maxReprompts; attempt++ {
		view, err := o.engine.View(p.ID)
		if err != nil {
			return events, err
		}
		req := ports.DecisionRequest{PlayerID: p.ID, Seq: seq, Attempt: attempt, Rejected: rejected, View: view}
		dec, err := call(ctx, o, p, "decide", o.decisionTimeout, func(ctx context.Context, s ports.Stream) (ports.Decision, error) {
			return agent.Decide(ctx, req, s)
		})
		if errors.Is(err, context.Canceled) {
			return events, err
		}
		if err != nil {
			forced, ferr := o.force(p, fallback, causeOf(err), err)
			return append(events, forced...), ferr
		}
		if o.engine.DecisionSeq() != seq {
			o.logger.Warn("Orchestrator: discarding stale decision from %s (seq %d, now %d)", p.ID, seq, o.engine.DecisionSeq())
			return events, nil
		}

		if !sideDone {
			sideDone = true
			side, eliminated := o.applySideMoves(p, dec)
			events = append(events, side...)
			if eliminated {
				return events, nil
			}
		}

		applied, err := o.engine.ApplyAction(p.ID, dec.Action)
		if err == nil {
			if dec.Speech != "" && o.transcript != nil {
				o.transcript.AddLine(fmt.Sprintf("%s says: %s", p.Name, dec.Speech))
			}
			return append(events, applied...), nil
		}
		var verr *app.ValidationError
		if !errors.As(err, &verr) {
			return events, err
		}
		rejected = err
		o.logger.Info("Orchestrator: %s attempt %d rejected: %v", p.ID, attempt, err)
	}

	forced, err := o.force(p, fallback, CauseInvalidAction, rejected)
	return append(events, forced...), err
}

// applySideMoves handles the optional parts of a decision. It reports whether the
// player was eliminated, in which case the main action is dropped.
func (o *Orchestrator) applySideMoves(p *domain.Player, dec ports.Decision) ([]app.Event, bool) {
	var events []app.Event
	if m := dec.Message; m != nil && m.Text != "" {
		sent, err := o.engine.SendSecretMessage(p.ID, m.To, m.Text)
		if err != nil {
			o.logger.Info("Orchestrator: secret message from %s dropped: %v", p.ID, err)
		}
		events = append(events, sent...)
	}
	if req := dec.Loan; req != nil {
		_, issued, err := o.engine.RequestLoan(p.ID, *req)
		if err != nil {
			o.logger.Info("Orchestrator: loan for %s refused: %v", p.ID, err)
		}
		events = append(events, issued...)
	}
	if move := dec.Cheat; move != nil {
		outcome, cheated, err := o.engine.AttemptCheat(p.ID, *move)
		if err != nil {
			o.logger.Info("Orchestrator: cheat by %s refused: %v", p.ID, err)
		}
		events = append(events, cheated...)
		if outcome.Detected {
			return events, true
		}
	}
	return events, false
}

// runTrial collects both defenses and every juror's vote, then resolves the trial.
func (o *Orchestrator) runTrial(ctx context.Context, trial app.Trial) ([]app.Event, error) {
	var events []app.Event
	defenses := make(map[string]string, len(trial.Targets))
	for i, id := range trial.Targets {
		p, _ := o.engine.Player(id)
		view, _ := o.engine.View(id)
		req := ports.DefenseRequest{PlayerID: id, Accuser: trial.Accuser, CoDefendant: trial.Targets[1-i], View: view}

		agent, ok := o.agents[id]
		if !ok {
			events = append(events, o.recordForced(p, "defend", CauseNoAgent, nil))
			continue
		}
		def, err := call(ctx, o, p, "defend", o.voteTimeout, func(ctx context.Context, s ports.Stream) (ports.Defense, error) {
			return agent.Defend(ctx, req, s)
		})
		if errors.Is(err, context.Canceled) {
			return events, err
		}
		if err != nil {
			events = append(events, o.recordForced(p, "defend", causeOf(err), err))
			continue
		}
		defenses[id] = def.Text
		if o.transcript != nil && def.Text != "" {
			o.transcript.AddLine(fmt.Sprintf("%s pleads: %s", p.Name, def.Text))
		}
	}

	votes := make(map[string]domain.Verdict, len(trial.Jurors))
	for _, id := range trial.Jurors {
		p, _ := o.engine.Player(id)
		view, _ := o.engine.View(id)
		req := ports.VoteRequest{PlayerID: id, Accuser: trial.Accuser, Targets: trial.Targets, Defenses: defenses, View: view}

		votes[id] = domain.VerdictAbstain
		agent, ok := o.agents[id]
		if !ok {
			events = append(events, o.recordForced(p, string(domain.VerdictAbstain), CauseNoAgent, nil))
			continue
		}
		vote, err := call(ctx, o, p, "vote", o.voteTimeout, func(ctx context.Context, s ports.Stream) (ports.Vote, error) {
			return agent.Vote(ctx, req, s)
		})
		if errors.Is(err, context.Canceled) {
			return events, err
		}
		if err != nil {
			events = append(events, o.recordForced(p, string(domain.VerdictAbstain), causeOf(err), err))
			continue
		}
		switch vote.Verdict {
		case domain.VerdictGuilty, domain.VerdictNotGuilty, domain.VerdictAbstain:
			votes[id] = vote.Verdict
		default:
			events = append(events, o.recordForced(p, string(domain.VerdictAbstain), CauseInvalidAction, fmt.Errorf("verdict %q", vote.Verdict)))
		}
	}

	resolved, err := o.engine.ResolveTrial(votes)
	return append(events, resolved...), err
}

// force records a forced-action event and applies the fallback.
func (o *Orchestrator) force(p *domain.Player, action domain.Action, cause Cause, reason error) ([]app.Event, error) {
	events := []app.Event{o.recordForced(p, string(action.Kind), cause, reason)}
	applied, err := o.engine.ApplyAction(p.ID, action)
	return append(events, applied...), err
}

func (o *Orchestrator) recordForced(p *domain.Player, what string, cause Cause, reason error) app.Event {
	fields := map[string]any{
		"cause":  string(cause),
		"action": what,
	}
	if reason != nil {
		fields["error"] = reason.Error()
	}
	o.logger.Info("Orchestrator: forcing %s for %s (%s)", what, p.ID, cause)
	return o.engine.Log().Append(eventlog.Entry{
		Category:  eventlog.CategoryPublic,
		Kind:      string(EventForcedAction),
		HandCount: o.engine.State().HandCount,
		PlayerID:  p.ID,
		Message:   fmt.Sprintf("%s is forced to %s (%s)", p.Name, what, cause),
		Fields:    fields,
	})
}

// record mirrors events into the transcript and the hand-history cache.
func (o *Orchestrator) record(events []app.Event) {
	for _, ev := range events {
		if o.transcript != nil && ev.Message != "" {
			line := ev.Message
			if ev.Category != eventlog.CategoryPublic {
				line = "(" + string(ev.Category) + ") " + line
			}
			o.transcript.AddLine(line)
		}
		if o.session != nil && ev.Kind == string(app.EventHandComplete) {
			o.session.RecordHand(fmt.Sprintf("hand %d won by %s", ev.HandCount, ev.PlayerID))
		}
	}
}

// call runs fn on its own goroutine under deadline. When the deadline passes the
// call is abandoned: its result channel is buffered so the goroutine can still
// finish, and its stream stops forwarding.
func call[T any](ctx context.Context, o *Orchestrator, p *domain.Player, kind string, deadline time.Duration, fn func(context.Context, ports.Stream) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	stream := newCallStream(o.dispatch, o.transcript, p.ID, p.Name, kind)
	defer stream.settle()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if rec := recover(); rec != nil {
				r = result{err: fmt.Errorf("%w: panic: %v", ports.ErrAgent, rec)}
			}
			done <- r
		}()
		r.v, r.err = fn(ctx, stream)
	}()

	timeout := &TimeoutError{PlayerID: p.ID, Kind: kind, Deadline: deadline}
	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return r.v, timeout
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, timeout
		}
		return zero, ctx.Err()
	}
}
