// Package command parses raw input lines into session events or direct
// connection-handle invocations. Unprefixed text is a say against the active
// view's target; prefixed text selects a command by its first token.
package command

import (
	"strings"

	"github.com/corvidchat/corvid/internal/session"
	"github.com/rs/zerolog"
)

// Prefix marks a line as a command rather than message text.
const Prefix = "/"

// Interpreter turns input lines into effects. It holds no model state of its
// own; callers pass a fresh snapshot per line.
type Interpreter struct {
	handles session.HandleResolver
	submit  func(session.Event)
	log     zerolog.Logger
}

// NewInterpreter creates an interpreter. submit is used for events that are
// produced asynchronously, such as a connection removal after a disconnect
// completes; synchronously produced events are returned from Interpret
// instead.
func NewInterpreter(handles session.HandleResolver, submit func(session.Event), log zerolog.Logger) *Interpreter {
	return &Interpreter{handles: handles, submit: submit, log: log}
}

// Interpret processes one input line against a model snapshot. It returns
// the state events to queue; direct handle invocations happen inline and
// their failures are logged, never propagated. Malformed commands and
// unknown commands are no-ops.
func (in *Interpreter) Interpret(text string, snap *session.Model) []session.Event {
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, Prefix) {
		in.say(snap, text)
		return nil
	}

	words := strings.Fields(text)
	cmd := strings.ToLower(strings.TrimPrefix(words[0], Prefix))
	args := words[1:]
	// Everything after the command token, verbatim except leading space.
	message := strings.TrimLeft(strings.TrimPrefix(text, words[0]), " \t")

	switch cmd {
	case "connect":
		if len(args) < 2 {
			return nil
		}
		return []session.Event{{
			Kind:   session.EventConnectRequested,
			Server: args[0],
			Nick:   args[1],
		}}

	case "disconnect":
		in.disconnect(snap.Active.ConnectionID, message)
		return nil

	case "join":
		if len(args) < 1 {
			return nil
		}
		if h, ok := in.resolve(snap.Active.ConnectionID); ok {
			if err := h.Join(message); err != nil {
				in.log.Error().Err(err).Str("channels", message).Msg("Join failed")
			}
		}
		return nil

	case "part", "leave", "close":
		return in.part(snap, args)

	case "msg", "query":
		if len(args) < 1 {
			return nil
		}
		peer := args[0]
		body := strings.TrimLeft(strings.TrimPrefix(message, peer), " \t")
		if body != "" {
			// The handle echoes the send back as a self-message event; the
			// engine creates or updates the query from that.
			if h, ok := in.resolve(snap.Active.ConnectionID); ok {
				if err := h.Say(peer, body); err != nil {
					in.log.Error().Err(err).Str("target", peer).Msg("Say failed")
				}
			}
			return nil
		}
		return []session.Event{{
			Kind:   session.EventQueryOpened,
			ConnID: snap.Active.ConnectionID,
			Target: peer,
		}}

	case "whois":
		if len(args) < 1 {
			return nil
		}
		if h, ok := in.resolve(snap.Active.ConnectionID); ok {
			if err := h.Whois(args[0]); err != nil {
				in.log.Error().Err(err).Str("nick", args[0]).Msg("Whois failed")
			}
		}
		return nil

	case "quit":
		in.quit(snap, message)
		return nil

	default:
		in.log.Debug().Str("command", cmd).Msg("Unrecognized command")
		return nil
	}
}

// say sends unprefixed text to the active view's resolved target.
func (in *Interpreter) say(snap *session.Model, text string) {
	target, ok := snap.ActiveTargetName()
	if !ok {
		in.log.Warn().Msg("No active target to send to")
		return
	}
	h, ok := in.resolve(snap.Active.ConnectionID)
	if !ok {
		return
	}
	if err := h.Say(target, text); err != nil {
		in.log.Error().Err(err).Str("target", target).Msg("Say failed")
	}
}

// part handles /part, /leave, and /close. A leading channel-sigil argument
// selects the target and the rest is the reason; with no arguments the
// active channel is parted, and closing an active query is purely local.
func (in *Interpreter) part(snap *session.Model, args []string) []session.Event {
	if len(args) > 0 && isChannelName(args[0]) {
		target := args[0]
		reason := strings.Join(args[1:], " ")
		in.partChannel(snap.Active.ConnectionID, target, reason)
		return nil
	}
	switch snap.Active.Type {
	case session.ViewChannel:
		target, ok := snap.ActiveTargetName()
		if !ok {
			return nil
		}
		in.partChannel(snap.Active.ConnectionID, target, strings.Join(args, " "))
		return nil
	case session.ViewQuery:
		return []session.Event{{
			Kind:    session.EventQueryRemoved,
			ConnID:  snap.Active.ConnectionID,
			QueryID: snap.Active.Target,
		}}
	default:
		return nil
	}
}

func (in *Interpreter) partChannel(connID session.ID, target, reason string) {
	h, ok := in.resolve(connID)
	if !ok {
		return
	}
	if err := h.Part(target, reason); err != nil {
		in.log.Error().Err(err).Str("channel", target).Msg("Part failed")
	}
}

// disconnect asks the handle to close; the removal event is submitted once
// the network round-trip completes, never inline.
func (in *Interpreter) disconnect(connID session.ID, message string) {
	h, ok := in.resolve(connID)
	if !ok {
		return
	}
	id := connID
	err := h.Disconnect(message, func() {
		in.submit(session.Event{Kind: session.EventConnectionRemoved, ConnID: id})
	})
	if err != nil {
		in.log.Error().Err(err).Int64("connection_id", int64(id)).Msg("Disconnect failed")
	}
}

// quit disconnects every connection. Connections without a live handle are
// removed directly.
func (in *Interpreter) quit(snap *session.Model, message string) {
	for _, conn := range snap.Connections {
		id := conn.ID
		h, ok := in.handles.Handle(id)
		if !ok {
			in.submit(session.Event{Kind: session.EventConnectionRemoved, ConnID: id})
			continue
		}
		err := h.Disconnect(message, func() {
			in.submit(session.Event{Kind: session.EventConnectionRemoved, ConnID: id})
		})
		if err != nil {
			in.log.Error().Err(err).Int64("connection_id", int64(id)).Msg("Disconnect failed")
		}
	}
}

func (in *Interpreter) resolve(connID session.ID) (session.Handle, bool) {
	if connID == session.None {
		in.log.Warn().Msg("No active connection")
		return nil, false
	}
	h, ok := in.handles.Handle(connID)
	if !ok {
		in.log.Warn().Int64("connection_id", int64(connID)).Msg("No handle for connection")
	}
	return h, ok
}

func isChannelName(s string) bool {
	return len(s) > 0 && (s[0] == '#' || s[0] == '&')
}
