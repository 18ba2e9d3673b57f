package session

import (
	"strings"
	"time"
)

// ViewType says what kind of container the active view points at.
type ViewType string

const (
	ViewNone       ViewType = ""
	ViewConnection ViewType = "connection"
	ViewChannel    ViewType = "channel"
	ViewQuery      ViewType = "query"
)

// View is the single globally-selected container the presentation layer
// displays. If Type is ViewNone, ConnectionID and Target are None.
type View struct {
	ConnectionID ID       `json:"connection_id"`
	Type         ViewType `json:"type"`
	Target       ID       `json:"target"`
}

// NoView returns the empty view sentinel.
func NoView() View {
	return View{ConnectionID: None, Type: ViewNone, Target: None}
}

// MessageKind classifies a message for rendering.
type MessageKind string

const (
	MessageNormal MessageKind = "normal"
	MessageSelf   MessageKind = "self"
	MessageServer MessageKind = "server"
	MessageJoin   MessageKind = "join"
	MessagePart   MessageKind = "part"
	MessageQuit   MessageKind = "quit"
	MessageKick   MessageKind = "kick"
	MessageNick   MessageKind = "nick"
	MessageTopic  MessageKind = "topic"
	MessageWhois  MessageKind = "whois"
)

// Message is an immutable append-only record attached to exactly one
// connection, channel, or query. User is empty for system messages.
type Message struct {
	ID   ID          `json:"id"`
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
	Time time.Time   `json:"time"`
	User string      `json:"user"`
	Read bool        `json:"read"`
}

// Channel is a joined group conversation. Users has set semantics: no
// duplicates, order insignificant.
type Channel struct {
	ID       ID         `json:"id"`
	Name     string     `json:"name"`
	Topic    string     `json:"topic"`
	Users    []string   `json:"users"`
	Messages []*Message `json:"messages"`
}

// HasUser reports whether nick is in the member set.
func (ch *Channel) HasUser(nick string) bool {
	for _, u := range ch.Users {
		if strings.EqualFold(u, nick) {
			return true
		}
	}
	return false
}

// AddUser adds nick to the member set if absent.
func (ch *Channel) AddUser(nick string) {
	if !ch.HasUser(nick) {
		ch.Users = append(ch.Users, nick)
	}
}

// RemoveUser removes nick from the member set.
func (ch *Channel) RemoveUser(nick string) {
	for i, u := range ch.Users {
		if strings.EqualFold(u, nick) {
			ch.Users = append(ch.Users[:i], ch.Users[i+1:]...)
			return
		}
	}
}

// Query is a private one-to-one conversation keyed by peer nickname.
// At most one query per peer name per connection.
type Query struct {
	ID       ID         `json:"id"`
	Name     string     `json:"name"`
	Messages []*Message `json:"messages"`
}

// Connection is one server session and its owned channels, queries, and
// server-level messages.
type Connection struct {
	ID        ID         `json:"id"`
	Name      string     `json:"name"`
	Nick      string     `json:"nick"`
	Connected bool       `json:"connected"`
	Channels  []*Channel `json:"channels"`
	Queries   []*Query   `json:"queries"`
	Messages  []*Message `json:"messages"`
}

// Channel returns the channel with the given id, or nil.
func (c *Connection) Channel(id ID) *Channel {
	for _, ch := range c.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// ChannelByName returns the channel with the given name, or nil. Channel
// names compare case-insensitively, matching server behavior.
func (c *Connection) ChannelByName(name string) *Channel {
	for _, ch := range c.Channels {
		if strings.EqualFold(ch.Name, name) {
			return ch
		}
	}
	return nil
}

// Query returns the query with the given id, or nil.
func (c *Connection) Query(id ID) *Query {
	for _, q := range c.Queries {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// QueryByName returns the query for the given peer nickname, or nil.
func (c *Connection) QueryByName(name string) *Query {
	for _, q := range c.Queries {
		if strings.EqualFold(q.Name, name) {
			return q
		}
	}
	return nil
}

// Model is the canonical session state: an ordered list of connections plus
// the active view. It is owned exclusively by the engine; everything else
// reads snapshots.
type Model struct {
	Connections []*Connection `json:"connections"`
	Active      View          `json:"active"`
}

// NewModel returns an empty model with the none view.
func NewModel() *Model {
	return &Model{Active: NoView()}
}

// Connection returns the connection with the given id, or nil.
func (m *Model) Connection(id ID) *Connection {
	for _, c := range m.Connections {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ActiveConnection returns the connection the active view belongs to, or nil.
func (m *Model) ActiveConnection() *Connection {
	if m.Active.Type == ViewNone {
		return nil
	}
	return m.Connection(m.Active.ConnectionID)
}

// ActiveTargetName resolves the active view to the name commands are sent to:
// the connection name, channel name, or query peer name.
func (m *Model) ActiveTargetName() (string, bool) {
	conn := m.ActiveConnection()
	if conn == nil {
		return "", false
	}
	switch m.Active.Type {
	case ViewConnection:
		return conn.Name, true
	case ViewChannel:
		if ch := conn.Channel(m.Active.Target); ch != nil {
			return ch.Name, true
		}
	case ViewQuery:
		if q := conn.Query(m.Active.Target); q != nil {
			return q.Name, true
		}
	}
	return "", false
}

// Snapshot returns a deep copy of the model for read-only use outside the
// dispatch loop.
func (m *Model) Snapshot() *Model {
	out := &Model{Active: m.Active, Connections: make([]*Connection, 0, len(m.Connections))}
	for _, c := range m.Connections {
		cc := &Connection{
			ID:        c.ID,
			Name:      c.Name,
			Nick:      c.Nick,
			Connected: c.Connected,
			Channels:  make([]*Channel, 0, len(c.Channels)),
			Queries:   make([]*Query, 0, len(c.Queries)),
			Messages:  copyMessages(c.Messages),
		}
		for _, ch := range c.Channels {
			cc.Channels = append(cc.Channels, &Channel{
				ID:       ch.ID,
				Name:     ch.Name,
				Topic:    ch.Topic,
				Users:    append([]string(nil), ch.Users...),
				Messages: copyMessages(ch.Messages),
			})
		}
		for _, q := range c.Queries {
			cc.Queries = append(cc.Queries, &Query{
				ID:       q.ID,
				Name:     q.Name,
				Messages: copyMessages(q.Messages),
			})
		}
		out.Connections = append(out.Connections, cc)
	}
	return out
}

func copyMessages(msgs []*Message) []*Message {
	out := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		m := *msg
		out = append(out, &m)
	}
	return out
}
