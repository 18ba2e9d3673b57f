package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/corvidchat/corvid/internal/events"
	"github.com/rs/zerolog"
)

// Bus event types published after transitions so observers always see a
// fully-applied model.
const (
	EventMessageAppended = "session.message.appended"
	EventViewSwitched    = "session.view.changed"
	EventConnectionState = "session.connection.state"
)

// TranscriptSink receives every message the engine appends, keyed by server
// name and container name. Implementations must not call back into the
// engine.
type TranscriptSink interface {
	Record(server, container string, msg Message)
}

// Engine owns the session model and is its sole mutator. Apply runs one
// transition to completion and returns the follow-up events it produced;
// callers queue those rather than applying them inline.
type Engine struct {
	alloc   *Allocator
	model   *Model
	handles HandleFactory
	bus     *events.EventBus
	sink    TranscriptSink
	log     zerolog.Logger
}

// NewEngine creates an engine with an empty model. bus and sink may be nil.
func NewEngine(alloc *Allocator, handles HandleFactory, bus *events.EventBus, sink TranscriptSink, log zerolog.Logger) *Engine {
	return &Engine{
		alloc:   alloc,
		model:   NewModel(),
		handles: handles,
		bus:     bus,
		sink:    sink,
		log:     log,
	}
}

// Model returns the live model. Only the dispatch goroutine may touch it.
func (e *Engine) Model() *Model { return e.model }

// Snapshot returns a deep copy of the current model.
func (e *Engine) Snapshot() *Model { return e.model.Snapshot() }

// Apply runs a single transition. Events referencing containers that no
// longer exist are logged no-ops; a client may legitimately receive stale
// notifications after removing a container locally.
func (e *Engine) Apply(ev Event) []Event {
	switch ev.Kind {
	case EventConnectRequested:
		return e.applyConnectRequested(ev)
	case EventConnectionReady:
		return e.applyConnectionReady(ev)
	case EventConnectionLost:
		return e.applyConnectionLost(ev)
	case EventConnectionRemoved:
		return e.applyConnectionRemoved(ev)
	case EventServerText:
		return e.applyServerText(ev)
	case EventChannelJoined:
		return e.applyChannelJoined(ev)
	case EventChannelLeft:
		return e.applyChannelLeft(ev)
	case EventUserQuit:
		return e.applyUserQuit(ev)
	case EventUserKicked:
		return e.applyUserKicked(ev)
	case EventNickChanged:
		return e.applyNickChanged(ev)
	case EventTopicChanged:
		return e.applyTopicChanged(ev)
	case EventMembersListed:
		return e.applyMembersListed(ev)
	case EventWhoisReceived:
		return e.applyWhoisReceived(ev)
	case EventMessageReceived:
		return e.applyMessageReceived(ev)
	case EventMessageSent:
		return e.applyMessageSent(ev)
	case EventViewChanged:
		return e.applyViewChanged(ev)
	case EventQueryOpened:
		return e.applyQueryOpened(ev)
	case EventQueryRemoved:
		return e.applyQueryRemoved(ev)
	default:
		e.log.Warn().Int("kind", int(ev.Kind)).Msg("Unknown event kind")
		return nil
	}
}

func (e *Engine) applyConnectRequested(ev Event) []Event {
	id := e.alloc.Next()
	if e.handles != nil {
		if err := e.handles.Open(id, ev.Server, ev.Nick); err != nil {
			e.log.Error().Err(err).Str("server", ev.Server).Msg("Failed to open connection handle")
		}
	}
	e.model.Connections = append(e.model.Connections, &Connection{
		ID:   id,
		Name: ev.Server,
		Nick: ev.Nick,
	})
	e.emitConnectionState(id, false)
	return nil
}

func (e *Engine) applyConnectionReady(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	conn.Connected = true
	if ev.Server != "" {
		conn.Name = ev.Server
	}
	if ev.Nick != "" {
		conn.Nick = ev.Nick
	}
	e.emitConnectionState(conn.ID, true)
	// A successful handshake always takes over the view.
	return []Event{{
		Kind: EventViewChanged,
		View: View{ConnectionID: conn.ID, Type: ViewConnection, Target: conn.ID},
	}}
}

func (e *Engine) applyConnectionLost(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	conn.Connected = false
	e.push(conn, connectionView(conn), conn.Name, &conn.Messages, MessageServer, "", "Disconnected from server")
	e.emitConnectionState(conn.ID, false)
	return nil
}

func (e *Engine) applyConnectionRemoved(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	if e.handles != nil {
		e.handles.Release(conn.ID)
	}
	for i, c := range e.model.Connections {
		if c.ID == conn.ID {
			e.model.Connections = append(e.model.Connections[:i], e.model.Connections[i+1:]...)
			break
		}
	}
	e.emitConnectionState(conn.ID, false)
	if e.model.Active.ConnectionID != conn.ID {
		return nil
	}
	if len(e.model.Connections) > 0 {
		next := e.model.Connections[0]
		return []Event{{Kind: EventViewChanged, View: connectionView(next)}}
	}
	return []Event{{Kind: EventViewChanged, View: NoView()}}
}

func (e *Engine) applyServerText(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	for _, line := range strings.Split(ev.Text, "\n") {
		e.push(conn, connectionView(conn), conn.Name, &conn.Messages, MessageServer, "", line)
	}
	return nil
}

func (e *Engine) applyChannelJoined(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	ch := conn.ChannelByName(ev.Channel)
	if ch == nil {
		// First join of this channel by us: create it and open it.
		ch = &Channel{
			ID:    e.alloc.Next(),
			Name:  ev.Channel,
			Users: []string{ev.Nick},
		}
		conn.Channels = append(conn.Channels, ch)
		return []Event{{Kind: EventViewChanged, View: channelView(conn, ch)}}
	}
	// Already present: another member joining.
	ch.AddUser(ev.Nick)
	e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageJoin, ev.Nick,
		fmt.Sprintf("%s joined %s", ev.Nick, ch.Name))
	return nil
}

func (e *Engine) applyChannelLeft(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	ch := conn.ChannelByName(ev.Channel)
	if ch == nil {
		return e.dropEvent(ev, "channel")
	}
	if strings.EqualFold(ev.Nick, conn.Nick) {
		return e.removeChannel(conn, ch)
	}
	ch.RemoveUser(ev.Nick)
	text := fmt.Sprintf("%s left %s", ev.Nick, ch.Name)
	if ev.Reason != "" {
		text += fmt.Sprintf(" (%s)", ev.Reason)
	}
	e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessagePart, ev.Nick, text)
	return nil
}

func (e *Engine) applyUserQuit(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	text := fmt.Sprintf("%s quit", ev.Nick)
	if ev.Reason != "" {
		text += fmt.Sprintf(" (%s)", ev.Reason)
	}
	for _, ch := range conn.Channels {
		if !ch.HasUser(ev.Nick) {
			continue
		}
		ch.RemoveUser(ev.Nick)
		e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageQuit, ev.Nick, text)
	}
	return nil
}

func (e *Engine) applyUserKicked(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	ch := conn.ChannelByName(ev.Channel)
	if ch == nil {
		return e.dropEvent(ev, "channel")
	}
	if strings.EqualFold(ev.Nick, conn.Nick) {
		// Our own kick destroys the channel, like our own part.
		return e.removeChannel(conn, ch)
	}
	ch.RemoveUser(ev.Nick)
	text := fmt.Sprintf("%s kicked %s", ev.By, ev.Nick)
	if ev.Reason != "" {
		text += fmt.Sprintf(" (%s)", ev.Reason)
	}
	e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageKick, ev.By, text)
	return nil
}

func (e *Engine) applyNickChanged(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	text := fmt.Sprintf("%s is now known as %s", ev.Nick, ev.NewNick)
	if strings.EqualFold(ev.Nick, conn.Nick) {
		conn.Nick = ev.NewNick
	}
	for _, ch := range conn.Channels {
		if !ch.HasUser(ev.Nick) {
			continue
		}
		ch.RemoveUser(ev.Nick)
		ch.AddUser(ev.NewNick)
		e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageNick, ev.Nick, text)
	}
	for _, q := range conn.Queries {
		if !strings.EqualFold(q.Name, ev.Nick) {
			continue
		}
		q.Name = ev.NewNick
		e.push(conn, queryView(conn, q), q.Name, &q.Messages, MessageNick, ev.Nick, text)
	}
	return nil
}

func (e *Engine) applyTopicChanged(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	ch := conn.ChannelByName(ev.Channel)
	if ch == nil {
		return e.dropEvent(ev, "channel")
	}
	ch.Topic = ev.Topic
	text := fmt.Sprintf("Topic: %s", ev.Topic)
	if ev.Nick != "" {
		text = fmt.Sprintf("%s set the topic to: %s", ev.Nick, ev.Topic)
	}
	e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageTopic, ev.Nick, text)
	return nil
}

func (e *Engine) applyMembersListed(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	ch := conn.ChannelByName(ev.Channel)
	if ch == nil {
		return e.dropEvent(ev, "channel")
	}
	for _, nick := range ev.Nicks {
		ch.AddUser(nick)
	}
	return nil
}

func (e *Engine) applyWhoisReceived(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil || ev.Whois == nil {
		return e.dropEvent(ev, "connection")
	}
	info := ev.Whois
	lines := []string{fmt.Sprintf("%s is %s@%s (%s)", info.Nick, info.User, info.Host, info.RealName)}
	if len(info.Channels) > 0 {
		lines = append(lines, fmt.Sprintf("%s on %s", info.Nick, strings.Join(info.Channels, " ")))
	}
	if info.Server != "" {
		lines = append(lines, fmt.Sprintf("%s using %s %s", info.Nick, info.Server, info.ServerInfo))
	}
	if info.Idle != "" {
		lines = append(lines, fmt.Sprintf("%s has been idle %s", info.Nick, info.Idle))
	}
	for _, line := range lines {
		e.push(conn, connectionView(conn), conn.Name, &conn.Messages, MessageWhois, "", line)
	}
	return nil
}

func (e *Engine) applyMessageReceived(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	if strings.EqualFold(ev.Target, conn.Nick) {
		// Private message: find or lazily create the query for the sender.
		q := conn.QueryByName(ev.Nick)
		var followups []Event
		if q == nil {
			q = &Query{ID: e.alloc.Next(), Name: ev.Nick}
			conn.Queries = append(conn.Queries, q)
			followups = append(followups, Event{Kind: EventViewChanged, View: queryView(conn, q)})
		}
		e.push(conn, queryView(conn, q), q.Name, &q.Messages, MessageNormal, ev.Nick, ev.Text)
		return followups
	}
	ch := conn.ChannelByName(ev.Target)
	if ch == nil {
		return e.dropEvent(ev, "channel")
	}
	e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageNormal, ev.Nick, ev.Text)
	return nil
}

func (e *Engine) applyMessageSent(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	if ch := conn.ChannelByName(ev.Target); ch != nil {
		e.push(conn, channelView(conn, ch), ch.Name, &ch.Messages, MessageSelf, conn.Nick, ev.Text)
		return nil
	}
	q := conn.QueryByName(ev.Target)
	var followups []Event
	if q == nil {
		q = &Query{ID: e.alloc.Next(), Name: ev.Target}
		conn.Queries = append(conn.Queries, q)
		followups = append(followups, Event{Kind: EventViewChanged, View: queryView(conn, q)})
	}
	e.push(conn, queryView(conn, q), q.Name, &q.Messages, MessageSelf, conn.Nick, ev.Text)
	return followups
}

func (e *Engine) applyViewChanged(ev Event) []Event {
	if ev.View.Type == ViewNone {
		e.model.Active = NoView()
		e.emitViewSwitched()
		return nil
	}
	conn := e.model.Connection(ev.View.ConnectionID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	var msgs []*Message
	switch ev.View.Type {
	case ViewConnection:
		msgs = conn.Messages
	case ViewChannel:
		ch := conn.Channel(ev.View.Target)
		if ch == nil {
			return e.dropEvent(ev, "channel")
		}
		msgs = ch.Messages
	case ViewQuery:
		q := conn.Query(ev.View.Target)
		if q == nil {
			return e.dropEvent(ev, "query")
		}
		msgs = q.Messages
	}
	e.model.Active = ev.View
	for _, msg := range msgs {
		msg.Read = true
	}
	e.emitViewSwitched()
	return nil
}

func (e *Engine) applyQueryOpened(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	q := conn.QueryByName(ev.Target)
	if q == nil {
		q = &Query{ID: e.alloc.Next(), Name: ev.Target}
		conn.Queries = append(conn.Queries, q)
	}
	return []Event{{Kind: EventViewChanged, View: queryView(conn, q)}}
}

func (e *Engine) applyQueryRemoved(ev Event) []Event {
	conn := e.model.Connection(ev.ConnID)
	if conn == nil {
		return e.dropEvent(ev, "connection")
	}
	q := conn.Query(ev.QueryID)
	if q == nil {
		return e.dropEvent(ev, "query")
	}
	for i, cand := range conn.Queries {
		if cand.ID == q.ID {
			conn.Queries = append(conn.Queries[:i], conn.Queries[i+1:]...)
			break
		}
	}
	if e.model.Active == queryView(conn, q) {
		return []Event{{Kind: EventViewChanged, View: connectionView(conn)}}
	}
	return nil
}

// removeChannel drops a channel after our own part or kick and retargets the
// view when it pointed at the removed channel.
func (e *Engine) removeChannel(conn *Connection, ch *Channel) []Event {
	for i, cand := range conn.Channels {
		if cand.ID == ch.ID {
			conn.Channels = append(conn.Channels[:i], conn.Channels[i+1:]...)
			break
		}
	}
	if e.model.Active == channelView(conn, ch) {
		return []Event{{Kind: EventViewChanged, View: connectionView(conn)}}
	}
	return nil
}

// push appends a message to a container and reports it to the sink and bus.
// target is the view that displays the container; the read flag is true only
// when that view is active right now.
func (e *Engine) push(conn *Connection, target View, container string, list *[]*Message, kind MessageKind, user, text string) {
	msg := &Message{
		ID:   e.alloc.Next(),
		Kind: kind,
		Text: text,
		Time: time.Now(),
		User: user,
		Read: e.model.Active == target,
	}
	*list = append(*list, msg)
	if e.sink != nil {
		e.sink.Record(conn.Name, container, *msg)
	}
	if e.bus != nil {
		e.bus.Emit(events.Event{
			Type: EventMessageAppended,
			Data: map[string]interface{}{
				"connection_id": int64(conn.ID),
				"server":        conn.Name,
				"container":     container,
				"view_type":     string(target.Type),
				"kind":          string(kind),
				"user":          user,
				"text":          text,
				"read":          msg.Read,
			},
			Timestamp: msg.Time,
			Source:    events.EventSourceSession,
		})
	}
}

func (e *Engine) emitViewSwitched() {
	if e.bus == nil {
		return
	}
	e.bus.Emit(events.Event{
		Type: EventViewSwitched,
		Data: map[string]interface{}{
			"connection_id": int64(e.model.Active.ConnectionID),
			"view_type":     string(e.model.Active.Type),
			"target":        int64(e.model.Active.Target),
		},
		Timestamp: time.Now(),
		Source:    events.EventSourceSession,
	})
}

func (e *Engine) emitConnectionState(id ID, connected bool) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(events.Event{
		Type: EventConnectionState,
		Data: map[string]interface{}{
			"connection_id": int64(id),
			"connected":     connected,
		},
		Timestamp: time.Now(),
		Source:    events.EventSourceSession,
	})
}

// dropEvent logs and discards an event whose target is gone.
func (e *Engine) dropEvent(ev Event, missing string) []Event {
	e.log.Debug().
		Int("kind", int(ev.Kind)).
		Int64("connection_id", int64(ev.ConnID)).
		Str("missing", missing).
		Msg("Dropping event for absent container")
	return nil
}

func connectionView(conn *Connection) View {
	return View{ConnectionID: conn.ID, Type: ViewConnection, Target: conn.ID}
}

func channelView(conn *Connection, ch *Channel) View {
	return View{ConnectionID: conn.ID, Type: ViewChannel, Target: ch.ID}
}

func queryView(conn *Connection, q *Query) View {
	return View{ConnectionID: conn.ID, Type: ViewQuery, Target: q.ID}
}
