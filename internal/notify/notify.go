// Package notify raises desktop notifications for messages that arrive in
// an inactive view.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/corvidchat/corvid/internal/events"
	"github.com/corvidchat/corvid/internal/logger"
	"github.com/corvidchat/corvid/internal/session"
)

// Notifier subscribes to appended messages and notifies on unread ones.
type Notifier struct {
	enabled bool
}

// NewNotifier creates a notifier. Subscribe it to the message-appended bus
// topic to activate it.
func NewNotifier(enabled bool) *Notifier {
	beeep.AppName = "corvid"
	return &Notifier{enabled: enabled}
}

// Subscribe attaches the notifier to the bus.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(session.EventMessageAppended, n)
}

// OnEvent implements the bus subscriber. Only unread normal messages
// notify; server noise and our own traffic stay silent.
func (n *Notifier) OnEvent(event events.Event) {
	if !n.enabled {
		return
	}
	if read, ok := event.Data["read"].(bool); !ok || read {
		return
	}
	if kind, ok := event.Data["kind"].(string); !ok || kind != string(session.MessageNormal) {
		return
	}

	user, _ := event.Data["user"].(string)
	container, _ := event.Data["container"].(string)
	text, _ := event.Data["text"].(string)

	title := fmt.Sprintf("%s in %s", user, container)
	if user == container {
		// Private message; the container is named after the peer.
		title = user
	}
	if err := beeep.Notify(title, text, ""); err != nil {
		logger.Log.Debug().Err(err).Msg("Desktop notification failed")
	}
}
