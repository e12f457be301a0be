// Package eventlog keeps the append-only record of a game: public table events,
// private messages between agents, and cheat or economy flags.
package eventlog

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Category partitions the log by audience.
type Category string

const (
	CategoryPublic Category = "public"
	CategorySecret Category = "secret"
	CategoryCheat  Category = "cheat"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryPublic, CategorySecret, CategoryCheat}

// Entry is one committed log record. Entries are never modified after Append.
type Entry struct {
	ID        string         `json:"id"`
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Category  Category       `json:"category"`
	Kind      string         `json:"kind"`
	HandCount int            `json:"hand_count"`
	PlayerID  string         `json:"player_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`

	// Recipients limits delivery to these players; empty means broadcast.
	Recipients []string `json:"recipients,omitempty"`
}

// Involves reports whether the entry names playerID as its actor, a recipient or in its fields.
func (e Entry) Involves(playerID string) bool {
	if e.PlayerID == playerID {
		return true
	}
	for _, id := range e.Recipients {
		if id == playerID {
			return true
		}
	}
	for _, v := range e.Fields {
		if s, ok := v.(string); ok && s == playerID {
			return true
		}
	}
	return false
}

// Log is safe for concurrent appenders and readers.
type Log struct {
	mu      sync.RWMutex
	seq     uint64
	entries map[Category][]Entry
	clock   func() time.Time
}

// Option customises a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) { l.clock = clock }
}

// New returns an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		entries: make(map[Category][]Entry, len(Categories)),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append commits an entry and returns the stored copy with ID, sequence and timestamp set.
func (l *Log) Append(e Entry) Entry {
	e.Fields = cloneFields(e.Fields)
	e.Recipients = append([]string(nil), e.Recipients...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e.Seq = l.seq
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = l.clock().UTC()
	}
	if e.Category == "" {
		e.Category = CategoryPublic
	}
	l.entries[e.Category] = append(l.entries[e.Category], e)
	return e
}

// Entries returns a copy of one category in append order.
func (l *Log) Entries(cat Category) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.entries[cat]
	out := make([]Entry, len(src))
	for i, e := range src {
		e.Fields = cloneFields(e.Fields)
		e.Recipients = append([]string(nil), e.Recipients...)
		out[i] = e
	}
	return out
}

// All returns every entry across categories in append order.
func (l *Log) All() []Entry {
	var out []Entry
	for _, cat := range Categories {
		out = append(out, l.Entries(cat)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Len returns the number of entries in a category.
func (l *Log) Len(cat Category) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries[cat])
}

// Involving returns entries from the given categories that mention any of the players.
func (l *Log) Involving(cats []Category, playerIDs ...string) []Entry {
	var out []Entry
	for _, cat := range cats {
		for _, e := range l.Entries(cat) {
			for _, id := range playerIDs {
				if e.Involves(id) {
					out = append(out, e)
					break
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Clear drops every entry. Only the reset sequence calls this.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[Category][]Entry, len(Categories))
}

func cloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
