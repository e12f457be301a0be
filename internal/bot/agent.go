package bot

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"zhajinhua/internal/bot/brain"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"
)

// Agent represents an autonomous bot player. It satisfies ports.Agent.
type Agent struct {
	ID       string
	Persona  Persona
	Strategy Brain
	Memory   *brain.GameMemory

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAgent builds an agent whose brain level comes from the persona.
func NewAgent(id string, persona Persona, seed int64) (*Agent, error) {
	level, err := ParseLevel(persona.Level)
	if err != nil {
		return nil, err
	}
	strategy, err := NewBrain(level)
	if err != nil {
		return nil, err
	}
	return &Agent{
		ID:       id,
		Persona:  persona,
		Strategy: strategy,
		Memory:   brain.NewMemory(),
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Decide picks the next action and streams the reasoning behind it.
func (a *Agent) Decide(ctx context.Context, req ports.DecisionRequest, stream ports.Stream) (ports.Decision, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Re-prompts show the same table; only learn from the first look.
	if req.Attempt == 0 {
		a.Memory.Observe(req.View)
	}
	th := a.Strategy.Decide(req.View, a.Memory, a.Persona, a.rng)
	if req.Rejected != nil {
		th.Decision = ports.Decision{Action: fallback(req)}
		th.Reasoning = []string{fmt.Sprintf("That was refused (%v). Playing it safe.", req.Rejected)}
	}
	if err := a.speak(ctx, stream, th.Reasoning); err != nil {
		return ports.Decision{}, err
	}
	return th.Decision, nil
}

// Defend answers an accusation in the persona's voice.
func (a *Agent) Defend(ctx context.Context, req ports.DefenseRequest, stream ports.Stream) (ports.Defense, error) {
	text := fmt.Sprintf("%s here. %s has nothing but a grudge. Check the cards, I played them straight.", a.Persona.Name, req.Accuser)
	if a.Persona.Style == StyleAggressive {
		text = fmt.Sprintf("Accuse me? %s is just sore about the last pot.", req.Accuser)
	}
	if err := a.speak(ctx, stream, []string{text}); err != nil {
		return ports.Defense{}, err
	}
	return ports.Defense{Text: text}, nil
}

// Vote returns the brain's verdict on the accused pair.
func (a *Agent) Vote(ctx context.Context, req ports.VoteRequest, stream ports.Stream) (ports.Vote, error) {
	a.mu.Lock()
	vote, reasoning := a.Strategy.Vote(req, a.Memory, a.Persona)
	a.mu.Unlock()
	if err := a.speak(ctx, stream, reasoning); err != nil {
		return ports.Vote{}, err
	}
	return vote, nil
}

// Reset forgets what the agent learned, for a new game.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Memory.Reset()
}

func (a *Agent) speak(ctx context.Context, stream ports.Stream, lines []string) error {
	if stream == nil {
		return ctx.Err()
	}
	stream.Start()
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			line = " " + line
		}
		stream.Chunk(line)
	}
	return ctx.Err()
}

// fallback is the safest legal action: pass at auction, a free call, or fold.
func fallback(req ports.DecisionRequest) domain.Action {
	legal := req.View.Self.Legal
	if _, ok := domain.FindLegal(legal, domain.ActionPass); ok {
		return domain.Action{Kind: domain.ActionPass}
	}
	if la, ok := domain.FindLegal(legal, domain.ActionCall); ok && la.Cost == 0 {
		return domain.Action{Kind: domain.ActionCall}
	}
	return domain.Fold()
}
