package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Mode selects how stream notifications reach the caller.
type Mode int

const (
	// Absent drops notifications.
	Absent Mode = iota
	// Immediate invokes callbacks on the agent's goroutine as fragments arrive.
	Immediate
	// Deferred queues notifications for a single delivery goroutine.
	Deferred
)

func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	default:
		return "absent"
	}
}

// StreamEvent is one notification about an in-flight agent call.
type StreamEvent struct {
	PlayerID string
	Kind     string // decide, defend or vote
	Text     string // empty for start notifications
}

// Callback receives stream notifications. Errors and panics are logged and ignored.
type Callback func(StreamEvent) error

// Callbacks is the caller-supplied pair of stream notifiers.
type Callbacks struct {
	Mode    Mode
	OnStart Callback
	OnChunk Callback
}

const (
	deferredQueueSize   = 256
	defaultFlushTimeout = 2 * time.Second
)

type notification struct {
	phase string
	cb    Callback
	ev    StreamEvent
}

// dispatcher delivers notifications according to the configured mode.
type dispatcher struct {
	cbs          Callbacks
	logger       runtime.Logger
	flushTimeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan notification
	wg     sync.WaitGroup
	once   sync.Once
}

func newDispatcher(cbs Callbacks, logger runtime.Logger) *dispatcher {
	d := &dispatcher{cbs: cbs, logger: logger, flushTimeout: defaultFlushTimeout}
	if cbs.Mode == Deferred {
		d.queue = make(chan notification, deferredQueueSize)
		d.wg.Add(1)
		go d.drain()
	}
	return d
}

func (d *dispatcher) start(ev StreamEvent) { d.dispatch("start", d.cbs.OnStart, ev) }

func (d *dispatcher) chunk(ev StreamEvent) { d.dispatch("chunk", d.cbs.OnChunk, ev) }

func (d *dispatcher) dispatch(phase string, cb Callback, ev StreamEvent) {
	if cb == nil {
		return
	}
	switch d.cbs.Mode {
	case Immediate:
		d.invoke(notification{phase: phase, cb: cb, ev: ev})
	case Deferred:
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			d.logger.Debug("Orchestrator: dropped late %s notification for %s", phase, ev.PlayerID)
			return
		}
		select {
		case d.queue <- notification{phase: phase, cb: cb, ev: ev}:
		default:
			d.logger.Warn("Orchestrator: dropped %s notification for %s, queue full", phase, ev.PlayerID)
		}
	}
}

func (d *dispatcher) drain() {
	defer d.wg.Done()
	for n := range d.queue {
		d.invoke(n)
	}
}

// invoke runs one callback behind a recover boundary.
func (d *dispatcher) invoke(n notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("Orchestrator: %v", &CallbackError{Phase: n.phase, PlayerID: n.ev.PlayerID, Err: fmt.Errorf("panic: %v", r)})
		}
	}()
	if err := n.cb(n.ev); err != nil {
		d.logger.Warn("Orchestrator: %v", &CallbackError{Phase: n.phase, PlayerID: n.ev.PlayerID, Err: err})
	}
}

// close flushes queued notifications and stops the delivery goroutine. It waits
// at most flushTimeout for a callback that does not return.
func (d *dispatcher) close() {
	d.once.Do(func() {
		if d.queue == nil {
			return
		}
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(d.flushTimeout):
			d.logger.Warn("Orchestrator: gave up flushing notifications after %v", d.flushTimeout)
		}
	})
}
