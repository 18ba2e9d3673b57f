package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startDispatcher(t *testing.T) (*Dispatcher, context.CancelFunc) {
	t.Helper()

	engine := newTestEngine()
	d := NewDispatcher(engine, 16, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	go d.Run(ctx)
	return d, cancel
}

// waitFor polls the dispatcher snapshot until cond holds.
func waitFor(t *testing.T, d *Dispatcher, cond func(*Model) bool) *Model {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := d.Snapshot()
		if cond(m) {
			return m
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
	return nil
}

func TestDispatcherAppliesSubmittedEvents(t *testing.T) {
	d, cancel := startDispatcher(t)
	defer cancel()

	d.Submit(Event{Kind: EventConnectRequested, Server: "irc.example.org:6667", Nick: "crow"})

	m := waitFor(t, d, func(m *Model) bool { return len(m.Connections) == 1 })
	if m.Connections[0].Nick != "crow" {
		t.Fatalf("unexpected connection: %+v", m.Connections[0])
	}
}

func TestDispatcherDrainsFollowupsBeforeLaterEvents(t *testing.T) {
	d, cancel := startDispatcher(t)
	defer cancel()

	// The handshake's follow-up view switch must land even though more
	// events are already queued behind it.
	d.Submit(Event{Kind: EventConnectRequested, Server: "irc.example.org:6667", Nick: "crow"})
	waitFor(t, d, func(m *Model) bool { return len(m.Connections) == 1 })
	connID := d.Snapshot().Connections[0].ID

	d.Submit(Event{Kind: EventConnectionReady, ConnID: connID})
	d.Submit(Event{Kind: EventChannelJoined, ConnID: connID, Nick: "crow", Channel: "#go"})
	d.Submit(Event{Kind: EventMessageReceived, ConnID: connID, Nick: "raven", Target: "#go", Text: "hello"})

	m := waitFor(t, d, func(m *Model) bool {
		conn := m.Connection(connID)
		ch := conn.ChannelByName("#go")
		return ch != nil && len(ch.Messages) == 1
	})

	conn := m.Connection(connID)
	ch := conn.ChannelByName("#go")
	if m.Active.Type != ViewChannel || m.Active.Target != ch.ID {
		t.Fatalf("active view = %+v, want the joined channel", m.Active)
	}
	// The message arrived while the channel view was already active, so the
	// join's follow-up view switch ran before the message was applied.
	if !ch.Messages[0].Read {
		t.Fatal("message should be read: the view switch follow-up must run before later events")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	d, cancel := startDispatcher(t)
	defer cancel()

	d.Submit(Event{Kind: EventConnectRequested, Server: "irc.example.org:6667", Nick: "crow"})
	snap := waitFor(t, d, func(m *Model) bool { return len(m.Connections) == 1 })

	// Mutating the snapshot must not leak into the live model.
	snap.Connections[0].Nick = "tampered"
	snap.Connections = nil

	m := waitFor(t, d, func(m *Model) bool { return len(m.Connections) == 1 })
	if m.Connections[0].Nick != "crow" {
		t.Fatalf("live model affected by snapshot mutation: %+v", m.Connections[0])
	}
}
