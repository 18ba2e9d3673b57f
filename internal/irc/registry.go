package irc

import (
	"fmt"
	"sync"

	"github.com/corvidchat/corvid/internal/logger"
	"github.com/corvidchat/corvid/internal/security"
	"github.com/corvidchat/corvid/internal/session"
	"github.com/corvidchat/corvid/internal/validation"
)

// Registry tracks the live client per connection ID. It implements the
// session's handle factory and resolver.
type Registry struct {
	mu       sync.RWMutex
	clients  map[session.ID]*Client
	submit   func(session.Event)
	keychain *security.Keychain
}

// NewRegistry creates an empty registry. submit routes protocol events into
// the dispatch queue; keychain may be nil when password lookup is disabled.
func NewRegistry(submit func(session.Event), keychain *security.Keychain) *Registry {
	return &Registry{
		clients:  make(map[session.ID]*Client),
		submit:   submit,
		keychain: keychain,
	}
}

// Open validates the address, builds a client, and starts connecting. The
// connection stays pending until the server confirms registration.
func (r *Registry) Open(id session.ID, server, nick string) error {
	host, port, err := validation.ValidateServerAddress(server)
	if err != nil {
		return err
	}
	if err := validation.ValidateNick(nick); err != nil {
		return err
	}

	password := ""
	if r.keychain != nil {
		password, err = r.keychain.GetPassword(server)
		if err != nil {
			logger.Log.Warn().Err(err).Str("server", server).Msg("Keychain lookup failed")
			password = ""
		}
	}

	address := fmt.Sprintf("%s:%d", host, port)
	useTLS := port == 6697
	client := NewClient(id, address, nick, password, useTLS, r.submit)

	r.mu.Lock()
	r.clients[id] = client
	r.mu.Unlock()

	if err := client.Connect(); err != nil {
		r.mu.Lock()
		delete(r.clients, id)
		r.mu.Unlock()
		return err
	}

	logger.Log.Info().Str("server", address).Str("nick", nick).Msg("Connecting")
	return nil
}

// Release drops the client for a removed connection, closing it if it is
// still up.
func (r *Registry) Release(id session.ID) {
	r.mu.Lock()
	client, ok := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()

	if ok {
		client.Close()
	}
}

// Handle returns the live handle for a connection ID.
func (r *Registry) Handle(id session.ID) (session.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	return client, true
}

// CloseAll tears down every client, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for id, client := range r.clients {
		clients = append(clients, client)
		delete(r.clients, id)
	}
	r.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
