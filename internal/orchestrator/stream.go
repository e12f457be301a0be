package orchestrator

import (
	"sync"

	"zhajinhua/internal/app/eventlog"
)

// callStream is the ports.Stream handed to one agent call. It stops forwarding
// as soon as the call is settled, so a late agent cannot write into the next decision.
type callStream struct {
	d          *dispatcher
	transcript *eventlog.Transcript
	prefix     string
	ev         StreamEvent

	mu      sync.Mutex
	started bool
	closed  bool
}

func newCallStream(d *dispatcher, transcript *eventlog.Transcript, playerID, name, kind string) *callStream {
	return &callStream{
		d:          d,
		transcript: transcript,
		prefix:     name + " (" + kind + "): ",
		ev:         StreamEvent{PlayerID: playerID, Kind: kind},
	}
}

func (s *callStream) Start() {
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	if s.transcript != nil {
		s.transcript.StartStream(s.prefix)
	}
	s.mu.Unlock()

	s.d.start(s.ev)
}

func (s *callStream) Chunk(text string) {
	s.Start()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.transcript != nil {
		s.transcript.AppendStream(text)
	}
	s.mu.Unlock()

	ev := s.ev
	ev.Text = text
	s.d.chunk(ev)
}

// settle closes the stream and the transcript line it owns.
func (s *callStream) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.started && s.transcript != nil {
		s.transcript.EndStream()
	}
}
