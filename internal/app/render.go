package app

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/corvidchat/corvid/internal/events"
	"github.com/corvidchat/corvid/internal/session"
)

// renderer prints session activity to a writer, one line per event. It is a
// plain bus subscriber so the session never knows about presentation.
type renderer struct {
	mu  sync.Mutex
	out io.Writer
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

// Subscribe attaches the renderer to the topics it prints.
func (r *renderer) Subscribe(bus *events.EventBus) {
	bus.Subscribe(session.EventMessageAppended, r)
	bus.Subscribe(session.EventConnectionState, r)
}

func (r *renderer) OnEvent(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := event.Timestamp.Format(time.Kitchen)
	switch event.Type {
	case session.EventMessageAppended:
		container, _ := event.Data["container"].(string)
		user, _ := event.Data["user"].(string)
		text, _ := event.Data["text"].(string)
		if user == "" {
			fmt.Fprintf(r.out, "%s [%s] %s\n", stamp, container, text)
			return
		}
		fmt.Fprintf(r.out, "%s [%s] <%s> %s\n", stamp, container, user, text)
	case session.EventConnectionState:
		connected, _ := event.Data["connected"].(bool)
		state := "disconnected"
		if connected {
			state = "connected"
		}
		fmt.Fprintf(r.out, "%s -- connection %v %s\n", stamp, event.Data["connection_id"], state)
	}
}
