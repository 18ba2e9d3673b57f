package session

// Handle is one live server connection. Implementations perform the actual
// network and protocol work and feed notifications back as events; the
// engine and interpreter only ever see this surface.
type Handle interface {
	// Join sends a join request. The argument is passed through verbatim and
	// may name several comma- or space-separated channels.
	Join(channels string) error
	// Part leaves a channel. Reason may be empty.
	Part(target, reason string) error
	// Say sends a message to a channel or user.
	Say(target, text string) error
	// Whois requests information about a nickname.
	Whois(nick string) error
	// Disconnect closes the connection with an optional farewell message.
	// done runs once the disconnect has completed; it must not be invoked
	// from a context that blocks the caller.
	Disconnect(message string, done func()) error
}

// HandleFactory opens handles for newly allocated connections and releases
// them when the connection is removed from the model.
type HandleFactory interface {
	Open(id ID, server, nick string) error
	Release(id ID)
}

// HandleResolver looks up the live handle for a connection id.
type HandleResolver interface {
	Handle(id ID) (Handle, bool)
}
