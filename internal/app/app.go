// Package app wires the session engine, protocol registry, interpreter, and
// ambient services into a runnable client.
package app

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/corvidchat/corvid/internal/archive"
	"github.com/corvidchat/corvid/internal/command"
	"github.com/corvidchat/corvid/internal/config"
	"github.com/corvidchat/corvid/internal/events"
	"github.com/corvidchat/corvid/internal/irc"
	"github.com/corvidchat/corvid/internal/logger"
	"github.com/corvidchat/corvid/internal/notify"
	"github.com/corvidchat/corvid/internal/security"
	"github.com/corvidchat/corvid/internal/session"
)

// App holds the assembled client.
type App struct {
	cfg        config.Config
	bus        *events.EventBus
	registry   *irc.Registry
	dispatcher *session.Dispatcher
	interp     *command.Interpreter
	transcript *archive.Archive
}

// New assembles the client from configuration.
func New(cfg config.Config) (*App, error) {
	bus := events.NewEventBus()

	// The registry submits protocol events into the dispatcher; the
	// dispatcher is built afterwards, so the closure resolves it late.
	var dispatcher *session.Dispatcher
	submit := func(ev session.Event) {
		dispatcher.Submit(ev)
	}

	registry := irc.NewRegistry(submit, security.NewKeychain())

	var transcript *archive.Archive
	var sink session.TranscriptSink
	if cfg.ArchiveEnable {
		a, err := archive.New(cfg.ArchivePath, cfg.ArchiveBuffer, cfg.ArchiveFlush)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		transcript = a
		sink = a
	}

	engine := session.NewEngine(session.NewAllocator(), registry, bus, sink, logger.Log)
	dispatcher = session.NewDispatcher(engine, cfg.QueueSize, logger.Log)
	interp := command.NewInterpreter(registry, submit, logger.Log)

	notify.NewNotifier(cfg.Notifications).Subscribe(bus)
	newRenderer(os.Stdout).Subscribe(bus)

	return &App{
		cfg:        cfg,
		bus:        bus,
		registry:   registry,
		dispatcher: dispatcher,
		interp:     interp,
		transcript: transcript,
	}, nil
}

// Run drives the client until ctx is cancelled or stdin closes.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.dispatcher.Run(runCtx)
		close(done)
	}()

	for _, auto := range a.cfg.AutoConnect {
		a.dispatcher.Submit(session.Event{
			Kind:   session.EventConnectRequested,
			Server: auto.Server,
			Nick:   auto.Nick,
		})
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-runCtx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			snap := a.dispatcher.Snapshot()
			for _, ev := range a.interp.Interpret(line, snap) {
				a.dispatcher.Submit(ev)
			}
		}
	}

	cancel()
	<-done

	a.registry.CloseAll()
	if a.transcript != nil {
		if err := a.transcript.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close archive")
		}
	}
	return nil
}
