package eventlog

import (
	"strings"
	"sync"
)

// Transcript is the human-readable hand log. Streamed agent output is
// accumulated on an open line until the next line starts.
type Transcript struct {
	mu        sync.Mutex
	lines     []string
	streaming bool
	current   strings.Builder
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AddLine closes any open stream and appends a complete line.
func (t *Transcript) AddLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	t.lines = append(t.lines, line)
}

// StartStream closes any open stream and opens a new line with prefix.
func (t *Transcript) StartStream(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	t.streaming = true
	t.current.WriteString(prefix)
}

// AppendStream adds text to the open line, opening one if needed.
func (t *Transcript) AppendStream(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streaming = true
	t.current.WriteString(text)
}

// EndStream commits the open line.
func (t *Transcript) EndStream() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
}

// Lines returns the committed lines followed by the open line, if any.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines), len(t.lines)+1)
	copy(out, t.lines)
	if t.streaming {
		out = append(out, t.current.String())
	}
	return out
}

// String joins all lines.
func (t *Transcript) String() string {
	return strings.Join(t.Lines(), "\n")
}

// Clear empties the transcript.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
	t.streaming = false
	t.current.Reset()
}

func (t *Transcript) flushLocked() {
	if !t.streaming {
		return
	}
	t.lines = append(t.lines, t.current.String())
	t.current.Reset()
	t.streaming = false
}
