package bot

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"zhajinhua/internal/domain"
)

// Playing styles a persona can carry.
const (
	StyleAggressive = "aggressive"
	StyleCautious   = "cautious"
	StyleTricky     = "tricky"
	StyleSteady     = "steady"
)

// Persona is the character an agent plays for a whole game.
type Persona struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Text  string   `json:"text"`
	Style string   `json:"style"`
	Level string   `json:"level"` // bot level name, empty for balanced
}

var (
	personaPool []Persona
	loadOnce    sync.Once
	loadErr     error
)

var defaultPersonas = []Persona{
	{ID: "old-gambler", Name: "Old Chen", Tags: []string{"veteran", "patient"}, Text: "Forty years at the tables. Rarely bluffs and never forgets a tell.", Style: StyleCautious, Level: "cautious"},
	{ID: "hotshot", Name: "Lucky Wu", Tags: []string{"reckless", "loud"}, Text: "Raises first and asks questions later.", Style: StyleAggressive, Level: "balanced"},
	{ID: "card-sharp", Name: "Madam Lin", Tags: []string{"sly", "sleight-of-hand"}, Text: "Her hands are faster than your eyes.", Style: StyleTricky, Level: "shark"},
	{ID: "accountant", Name: "Mr. Zhao", Tags: []string{"careful", "numbers"}, Text: "Counts every chip and every odd.", Style: StyleSteady, Level: "balanced"},
	{ID: "widow", Name: "Auntie Fang", Tags: []string{"friendly", "ruthless"}, Text: "Sweet smile, sharp knives.", Style: StyleAggressive, Level: "shark"},
	{ID: "student", Name: "Little Hu", Tags: []string{"nervous", "eager"}, Text: "First time at a real table.", Style: StyleCautious, Level: "cautious"},
}

// LoadPersonas loads the persona pool from the given path.
func LoadPersonas(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read personas: %w", err)
			return
		}

		var pool []Persona
		if err := json.Unmarshal(data, &pool); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal personas: %w", err)
			return
		}
		seen := make(map[string]bool, len(pool))
		for _, p := range pool {
			if p.ID == "" || seen[p.ID] {
				loadErr = fmt.Errorf("persona pool has an empty or duplicate id %q", p.ID)
				return
			}
			if _, err := ParseLevel(p.Level); err != nil {
				loadErr = fmt.Errorf("persona %s: %w", p.ID, err)
				return
			}
			seen[p.ID] = true
		}
		personaPool = pool
	})
	return loadErr
}

// Personas returns the loaded pool, or the built-in pool when nothing was loaded.
func Personas() []Persona {
	if len(personaPool) == 0 {
		return defaultPersonas
	}
	return personaPool
}

// PersonaTracker remembers which personas a session has already handed out.
type PersonaTracker interface {
	PersonaUsed(id string) bool
	MarkPersonaUsed(id string)
}

// AssignPersonas gives every player a distinct persona, preferring ones the tracker
// has not seen yet. When the fresh personas run out the used ones are recycled, and
// once the pool itself is exhausted players share personas.
func AssignPersonas(players []*domain.Player, pool []Persona, tracker PersonaTracker, rng *rand.Rand) []Persona {
	if len(pool) == 0 {
		return nil
	}
	var fresh, used []Persona
	for _, p := range pool {
		if tracker != nil && tracker.PersonaUsed(p.ID) {
			used = append(used, p)
		} else {
			fresh = append(fresh, p)
		}
	}
	rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	rng.Shuffle(len(used), func(i, j int) { used[i], used[j] = used[j], used[i] })
	order := append(fresh, used...)

	assigned := make([]Persona, len(players))
	for i, pl := range players {
		persona := order[i%len(order)]
		pl.SetPersona(persona.ID, persona.Text, persona.Tags)
		if tracker != nil {
			tracker.MarkPersonaUsed(persona.ID)
		}
		assigned[i] = persona
	}
	return assigned
}
