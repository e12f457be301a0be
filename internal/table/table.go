// Package table assembles a playable Zhajinhua table: the engine, one bot agent
// per seat, the orchestrator driving them and the reset manager that archives
// each finished game.
package table

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/heroiclabs/nakama-common/runtime"

	"zhajinhua/internal/app"
	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/app/reset"
	"zhajinhua/internal/bot"
	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/orchestrator"
	"zhajinhua/internal/ports"
)

var ErrNoPersonas = errors.New("persona pool is empty")

// Options configures a table. Zero values fall back to sensible defaults.
type Options struct {
	Seed      int64
	Personas  []bot.Persona
	Callbacks orchestrator.Callbacks
}

// Table owns every moving part of one game table.
type Table struct {
	Engine       *app.Engine
	Orchestrator *orchestrator.Orchestrator
	Manager      *reset.Manager
	Session      *reset.Session
	Transcript   *eventlog.Transcript

	cfg      config.GameConfig
	pool     []bot.Persona
	agents   map[string]ports.Agent
	assigned map[string]bot.Persona
	rng      *rand.Rand
	logger   runtime.Logger
	games    int
}

// New builds a seated table ready for its first hand.
func New(cfg config.GameConfig, opts Options, logger runtime.Logger) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool := opts.Personas
	if len(pool) == 0 {
		pool = bot.Personas()
	}
	if len(pool) == 0 {
		return nil, ErrNoPersonas
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	seats := make([]app.Seat, cfg.Table.Players)
	for i := range seats {
		seats[i] = app.Seat{ID: fmt.Sprintf("ai-%d", i+1), Name: fmt.Sprintf("Seat %d", i+1)}
	}
	engine, err := app.NewEngine(cfg, seats, eventlog.New(), logger, app.WithRand(rand.New(rand.NewSource(rng.Int63()))))
	if err != nil {
		return nil, err
	}

	t := &Table{
		Engine:     engine,
		Session:    reset.NewSession(),
		Transcript: eventlog.NewTranscript(),
		cfg:        cfg,
		pool:       pool,
		agents:     make(map[string]ports.Agent, len(seats)),
		assigned:   make(map[string]bot.Persona, len(seats)),
		rng:        rng,
		logger:     logger,
	}
	t.Manager = reset.NewManager(engine, t.Transcript, t.Session, logger)
	t.Orchestrator = orchestrator.New(engine, t.agents, logger,
		orchestrator.WithCallbacks(opts.Callbacks),
		orchestrator.WithTranscript(t.Transcript),
		orchestrator.WithSession(t.Session))

	if err := t.seat(); err != nil {
		t.Orchestrator.Close()
		return nil, err
	}
	return t, nil
}

// seat hands every player a persona and a fresh agent built from it.
func (t *Table) seat() error {
	players := t.Engine.Players()
	personas := bot.AssignPersonas(players, t.pool, t.Session, t.rng)
	for i, p := range players {
		agent, err := bot.NewAgent(p.ID, personas[i], t.rng.Int63())
		if err != nil {
			return fmt.Errorf("seat %s: %w", p.ID, err)
		}
		p.Name = personas[i].Name
		t.agents[p.ID] = agent
		t.assigned[p.ID] = personas[i]
	}
	t.logger.Info("Table: seated %d agents for game %s", len(players), t.Engine.GameID())
	return nil
}

// Config returns the configuration the table was built with.
func (t *Table) Config() config.GameConfig { return t.cfg }

// Persona returns the persona currently playing playerID.
func (t *Table) Persona(playerID string) (bot.Persona, bool) {
	p, ok := t.assigned[playerID]
	return p, ok
}

// Games returns how many games have been archived at this table.
func (t *Table) Games() int { return t.games }

// Phase returns the engine phase.
func (t *Table) Phase() domain.Phase { return t.Engine.Phase() }

// Step advances the table by one decision point.
func (t *Table) Step(ctx context.Context) ([]app.Event, error) {
	return t.Orchestrator.Step(ctx)
}

// Finish archives the finished game into sink, resets the table and seats a
// new set of personas. The report is returned even when a stage failed.
func (t *Table) Finish(ctx context.Context, sink ports.LogSink) (reset.Report, error) {
	report, err := t.Manager.CompleteGameReset(ctx, sink)
	t.games++
	if seatErr := t.seat(); seatErr != nil {
		err = errors.Join(err, seatErr)
	}
	return report, err
}

// Play runs one whole game and then finishes it.
func (t *Table) Play(ctx context.Context, sink ports.LogSink) (reset.Report, error) {
	if _, err := t.Orchestrator.Run(ctx); err != nil {
		return reset.Report{}, err
	}
	return t.Finish(ctx, sink)
}

// Close releases the orchestrator.
func (t *Table) Close() {
	t.Orchestrator.Close()
}
