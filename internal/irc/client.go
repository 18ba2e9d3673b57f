package irc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"

	"github.com/corvidchat/corvid/internal/logger"
	"github.com/corvidchat/corvid/internal/session"
)

// Client wraps a single server connection and translates protocol traffic
// into session events. It performs no model mutation itself; everything goes
// through submit and is applied on the dispatch goroutine.
type Client struct {
	conn   *ircevent.Connection
	id     session.ID
	server string
	submit func(session.Event)

	mu       sync.Mutex
	quitting bool
	onQuit   func()

	whoisMu         sync.Mutex
	whoisInProgress map[string]*session.WhoisInfo

	namesMu         sync.Mutex
	namesInProgress map[string][]string
}

// NewClient creates a client for one server. address is host:port; password
// may be empty.
func NewClient(id session.ID, address, nick, password string, useTLS bool, submit func(session.Event)) *Client {
	c := &Client{
		id:              id,
		server:          address,
		submit:          submit,
		whoisInProgress: make(map[string]*session.WhoisInfo),
		namesInProgress: make(map[string][]string),
	}

	c.conn = &ircevent.Connection{
		Server:        address,
		Nick:          nick,
		User:          nick,
		RealName:      nick,
		UseTLS:        useTLS,
		Password:      password,
		ReconnectFreq: 0, // Disable automatic reconnection - we'll handle it manually
	}

	c.setupHandlers()
	return c
}

// Connect dials the server and starts the read loop.
func (c *Client) Connect() error {
	if err := c.conn.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.server, err)
	}
	go c.conn.Loop()
	return nil
}

// setupHandlers registers the protocol callbacks.
func (c *Client) setupHandlers() {
	// Connection established
	c.conn.AddConnectCallback(func(e ircmsg.Message) {
		c.submit(session.Event{
			Kind:   session.EventConnectionReady,
			ConnID: c.id,
			Server: c.server,
			Nick:   c.conn.CurrentNick(),
		})
	})

	// Connection lost. A deliberate quit fires the registered completion
	// callback instead of a lost event.
	c.conn.AddDisconnectCallback(func(e ircmsg.Message) {
		c.mu.Lock()
		quitting := c.quitting
		done := c.onQuit
		c.onQuit = nil
		c.mu.Unlock()

		if quitting {
			if done != nil {
				done()
			}
			return
		}
		c.submit(session.Event{Kind: session.EventConnectionLost, ConnID: c.id})
	})

	c.conn.AddCallback("PRIVMSG", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		c.submit(session.Event{
			Kind:   session.EventMessageReceived,
			ConnID: c.id,
			Nick:   e.Nick(),
			Target: e.Params[0],
			Text:   e.Params[1],
		})
	})

	c.conn.AddCallback("JOIN", func(e ircmsg.Message) {
		if len(e.Params) < 1 {
			return
		}
		c.submit(session.Event{
			Kind:    session.EventChannelJoined,
			ConnID:  c.id,
			Nick:    e.Nick(),
			Channel: e.Params[0],
		})
	})

	c.conn.AddCallback("PART", func(e ircmsg.Message) {
		if len(e.Params) < 1 {
			return
		}
		reason := ""
		if len(e.Params) > 1 {
			reason = e.Params[1]
		}
		c.submit(session.Event{
			Kind:    session.EventChannelLeft,
			ConnID:  c.id,
			Nick:    e.Nick(),
			Channel: e.Params[0],
			Reason:  reason,
		})
	})

	c.conn.AddCallback("QUIT", func(e ircmsg.Message) {
		reason := ""
		if len(e.Params) > 0 {
			reason = e.Params[0]
		}
		c.submit(session.Event{
			Kind:   session.EventUserQuit,
			ConnID: c.id,
			Nick:   e.Nick(),
			Reason: reason,
		})
	})

	c.conn.AddCallback("KICK", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		reason := ""
		if len(e.Params) > 2 {
			reason = e.Params[2]
		}
		c.submit(session.Event{
			Kind:    session.EventUserKicked,
			ConnID:  c.id,
			By:      e.Nick(),
			Nick:    e.Params[1],
			Channel: e.Params[0],
			Reason:  reason,
		})
	})

	c.conn.AddCallback("NICK", func(e ircmsg.Message) {
		if len(e.Params) < 1 {
			return
		}
		c.submit(session.Event{
			Kind:    session.EventNickChanged,
			ConnID:  c.id,
			Nick:    e.Nick(),
			NewNick: e.Params[0],
		})
	})

	c.conn.AddCallback("TOPIC", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		c.submit(session.Event{
			Kind:    session.EventTopicChanged,
			ConnID:  c.id,
			Nick:    e.Nick(),
			Channel: e.Params[0],
			Topic:   e.Params[1],
		})
	})

	// RPL_TOPIC on join: <nick> <channel> :<topic>
	c.conn.AddCallback("332", func(e ircmsg.Message) {
		if len(e.Params) < 3 {
			return
		}
		c.submit(session.Event{
			Kind:    session.EventTopicChanged,
			ConnID:  c.id,
			Channel: e.Params[1],
			Topic:   e.Params[2],
		})
	})

	// RPL_NAMREPLY: accumulate until RPL_ENDOFNAMES
	c.conn.AddCallback("353", func(e ircmsg.Message) {
		if len(e.Params) < 4 {
			return
		}
		channel := e.Params[2]
		nicks := strings.Fields(e.Params[3])
		for i, nick := range nicks {
			nicks[i] = strings.TrimLeft(nick, "@+%~&")
		}
		c.namesMu.Lock()
		c.namesInProgress[channel] = append(c.namesInProgress[channel], nicks...)
		c.namesMu.Unlock()
	})

	c.conn.AddCallback("366", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		channel := e.Params[1]
		c.namesMu.Lock()
		nicks := c.namesInProgress[channel]
		delete(c.namesInProgress, channel)
		c.namesMu.Unlock()
		if len(nicks) == 0 {
			return
		}
		c.submit(session.Event{
			Kind:    session.EventMembersListed,
			ConnID:  c.id,
			Channel: channel,
			Nicks:   nicks,
		})
	})

	// MOTD lines go to the server buffer
	c.conn.AddCallback("372", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		c.submit(session.Event{
			Kind:   session.EventServerText,
			ConnID: c.id,
			Text:   e.Params[1],
		})
	})

	c.setupWhoisHandlers()

	// Error numerics are logged, never fatal, and never touch the session
	for _, numeric := range []string{"401", "403", "404", "421", "433", "442", "473", "474", "475"} {
		c.conn.AddCallback(numeric, func(e ircmsg.Message) {
			logger.Log.Warn().
				Str("server", c.server).
				Str("numeric", e.Command).
				Str("detail", strings.Join(e.Params, " ")).
				Msg("Server error")
		})
	}
}

// setupWhoisHandlers accumulates the RPL_WHOIS* numerics and submits one
// event at RPL_ENDOFWHOIS.
func (c *Client) setupWhoisHandlers() {
	get := func(nick string) *session.WhoisInfo {
		key := strings.ToLower(nick)
		info, ok := c.whoisInProgress[key]
		if !ok {
			info = &session.WhoisInfo{Nick: nick}
			c.whoisInProgress[key] = info
		}
		return info
	}

	// RPL_WHOISUSER: <nick> <user> <host> * :<realname>
	c.conn.AddCallback("311", func(e ircmsg.Message) {
		if len(e.Params) < 6 {
			return
		}
		c.whoisMu.Lock()
		info := get(e.Params[1])
		info.User = e.Params[2]
		info.Host = e.Params[3]
		info.RealName = e.Params[5]
		c.whoisMu.Unlock()
	})

	// RPL_WHOISSERVER: <nick> <server> :<server info>
	c.conn.AddCallback("312", func(e ircmsg.Message) {
		if len(e.Params) < 4 {
			return
		}
		c.whoisMu.Lock()
		info := get(e.Params[1])
		info.Server = e.Params[2]
		info.ServerInfo = e.Params[3]
		c.whoisMu.Unlock()
	})

	// RPL_WHOISIDLE: <nick> <seconds> [signon] :seconds idle
	c.conn.AddCallback("317", func(e ircmsg.Message) {
		if len(e.Params) < 3 {
			return
		}
		c.whoisMu.Lock()
		get(e.Params[1]).Idle = e.Params[2] + " seconds"
		c.whoisMu.Unlock()
	})

	// RPL_WHOISCHANNELS: <nick> :<channels>
	c.conn.AddCallback("319", func(e ircmsg.Message) {
		if len(e.Params) < 3 {
			return
		}
		c.whoisMu.Lock()
		get(e.Params[1]).Channels = strings.Fields(e.Params[2])
		c.whoisMu.Unlock()
	})

	// RPL_ENDOFWHOIS: <nick> :End of /WHOIS list
	c.conn.AddCallback("318", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		key := strings.ToLower(e.Params[1])
		c.whoisMu.Lock()
		info := c.whoisInProgress[key]
		delete(c.whoisInProgress, key)
		c.whoisMu.Unlock()
		if info == nil {
			return
		}
		c.submit(session.Event{
			Kind:   session.EventWhoisReceived,
			ConnID: c.id,
			Whois:  info,
		})
	})
}

// Join joins one or more channels, separated by commas or spaces.
func (c *Client) Join(channels string) error {
	for _, channel := range strings.Fields(strings.ReplaceAll(channels, ",", " ")) {
		if err := c.conn.Join(channel); err != nil {
			return fmt.Errorf("failed to join %s: %w", channel, err)
		}
	}
	return nil
}

// Part leaves a channel with an optional reason.
func (c *Client) Part(target, reason string) error {
	if reason != "" {
		// ircevent's Part has no reason parameter
		return c.conn.SendRaw(fmt.Sprintf("PART %s :%s", target, reason))
	}
	return c.conn.Part(target)
}

// Say sends a message and echoes it back as a sent event so the session sees
// its own traffic.
func (c *Client) Say(target, text string) error {
	if err := c.conn.Privmsg(target, text); err != nil {
		return fmt.Errorf("failed to send to %s: %w", target, err)
	}
	c.submit(session.Event{
		Kind:   session.EventMessageSent,
		ConnID: c.id,
		Target: target,
		Text:   text,
	})
	return nil
}

// Whois requests whois information for a nick.
func (c *Client) Whois(nick string) error {
	return c.conn.SendRaw(fmt.Sprintf("WHOIS %s", nick))
}

// Disconnect sends QUIT and invokes done once the server closes the link.
func (c *Client) Disconnect(message string, done func()) error {
	c.mu.Lock()
	c.quitting = true
	c.onQuit = done
	c.mu.Unlock()

	if message != "" {
		c.conn.QuitMessage = message
	}
	c.conn.Quit()
	return nil
}

// Close tears the connection down without waiting for the server.
func (c *Client) Close() {
	c.mu.Lock()
	c.quitting = true
	c.onQuit = nil
	c.mu.Unlock()
	c.conn.Quit()
}
