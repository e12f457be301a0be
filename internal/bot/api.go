package bot

import (
	"math/rand"

	"zhajinhua/internal/app"
	"zhajinhua/internal/bot/brain"
	"zhajinhua/internal/ports"
)

// Thought is a decision together with the reasoning that produced it. The agent
// streams the reasoning lines before returning the decision.
type Thought struct {
	Decision  ports.Decision
	Reasoning []string
}

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	Decide(view app.TableView, mem *brain.GameMemory, persona Persona, rng *rand.Rand) Thought
	Vote(req ports.VoteRequest, mem *brain.GameMemory, persona Persona) (ports.Vote, []string)
}
