package session

// EventKind selects the transition an event requests.
type EventKind int

const (
	// EventConnectRequested asks the engine to allocate a connection and
	// open a handle for it.
	EventConnectRequested EventKind = iota
	// EventConnectionReady confirms server registration for a connection.
	EventConnectionReady
	// EventConnectionLost marks a connection as no longer registered.
	EventConnectionLost
	// EventConnectionRemoved drops a connection and releases its handle.
	EventConnectionRemoved
	// EventServerText carries MOTD-like server text, one message per line.
	EventServerText
	// EventChannelJoined reports a user (possibly us) joining a channel.
	EventChannelJoined
	// EventChannelLeft reports a user (possibly us) parting a channel.
	EventChannelLeft
	// EventUserQuit reports a user quitting the server.
	EventUserQuit
	// EventUserKicked reports a user being kicked from a channel.
	EventUserKicked
	// EventNickChanged reports a nickname change.
	EventNickChanged
	// EventTopicChanged reports a channel topic change.
	EventTopicChanged
	// EventMembersListed delivers a channel membership list.
	EventMembersListed
	// EventWhoisReceived delivers a completed whois result.
	EventWhoisReceived
	// EventMessageReceived delivers an inbound channel or private message.
	EventMessageReceived
	// EventMessageSent echoes a message we sent ourselves.
	EventMessageSent
	// EventViewChanged switches the active view. This is the only transition
	// that flips read flags to true.
	EventViewChanged
	// EventQueryOpened creates or focuses a query for a peer.
	EventQueryOpened
	// EventQueryRemoved drops a query from its connection.
	EventQueryRemoved
)

// WhoisInfo is the payload of a whois result notification.
type WhoisInfo struct {
	Nick       string
	User       string
	Host       string
	RealName   string
	Server     string
	ServerInfo string
	Idle       string
	Channels   []string
}

// Event is a state-transition request: a user command, a protocol
// notification, or a follow-up produced by an earlier transition. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	ConnID  ID
	Server  string
	Nick    string
	NewNick string
	By      string
	Channel string
	Target  string
	Text    string
	Reason  string
	Topic   string
	Nicks   []string
	Whois   *WhoisInfo
	View    View
	QueryID ID
}
