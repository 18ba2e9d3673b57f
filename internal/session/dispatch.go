package session

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher serializes every event, whether a user command or a protocol
// notification, through the single engine entry point. Follow-up
// events produced by a transition are drained strictly FIFO before anything
// queued later, so observers never see a view switch before the model update
// that motivated it.
type Dispatcher struct {
	engine *Engine
	queue  chan Event
	snaps  chan chan *Model
	log    zerolog.Logger
}

// NewDispatcher creates a dispatcher with a buffered submission queue.
func NewDispatcher(engine *Engine, queueSize int, log zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		engine: engine,
		queue:  make(chan Event, queueSize),
		snaps:  make(chan chan *Model),
		log:    log,
	}
}

// Submit queues an event for the drain loop. Safe to call from any
// goroutine; notification contexts never run engine work themselves.
func (d *Dispatcher) Submit(ev Event) {
	d.queue <- ev
}

// Snapshot returns a deep copy of the model, taken between transitions on
// the drain goroutine. Call only while Run is active.
func (d *Dispatcher) Snapshot() *Model {
	reply := make(chan *Model, 1)
	d.snaps <- reply
	return <-reply
}

// Run drains events until ctx is cancelled. Transitions execute to
// completion without interleaving; there is exactly one writer of the model.
func (d *Dispatcher) Run(ctx context.Context) {
	var pending []Event
	for {
		if len(pending) > 0 {
			ev := pending[0]
			pending = pending[1:]
			pending = append(pending, d.engine.Apply(ev)...)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case reply := <-d.snaps:
			reply <- d.engine.Snapshot()
		case ev := <-d.queue:
			pending = append(pending, d.engine.Apply(ev)...)
		}
	}
}
