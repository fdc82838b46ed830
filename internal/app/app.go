// Package app wires the bridge together: event bridge, component factory,
// operation processor, JSON-RPC listener and, unless running headless, the
// terminal inspector.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dcmaui/uibridge/internal/config"
	"github.com/dcmaui/uibridge/internal/event"
	"github.com/dcmaui/uibridge/internal/list"
	"github.com/dcmaui/uibridge/internal/logging/events"
	"github.com/dcmaui/uibridge/internal/processor"
	"github.com/dcmaui/uibridge/internal/transport"
	"github.com/dcmaui/uibridge/internal/ui"
)

// Run bootstraps the bridge and blocks until the inspector exits or, in
// headless mode, a termination signal arrives.
func Run(cfg config.Config) error {
	bridge := event.New()
	defer bridge.Close()

	listCfg := list.Config{
		WindowSize:     cfg.List.WindowSize,
		EndThreshold:   cfg.List.EndThreshold,
		ScrollInterval: cfg.List.ScrollInterval,
	}

	var (
		factory processor.ComponentFactory
		term    *ui.TermFactory
	)
	if cfg.Server.Headless {
		factory = processor.NopFactory{}
	} else {
		term = ui.NewTermFactory()
		factory = term
	}

	proc := processor.New(factory, bridge, processor.WithListConfig(listCfg))
	defer proc.Close()

	ln, err := listen(cfg.Server.Socket)
	if err != nil {
		return err
	}
	defer ln.Close()
	defer os.Remove(cfg.Server.Socket)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := transport.NewServer(proc, bridge)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx, ln) }()
	events.App.Serving(cfg.Server.Socket)

	if cfg.Server.Headless {
		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		select {
		case <-sigCtx.Done():
			return nil
		case err := <-serveErr:
			return err
		}
	}

	model := ui.NewModel(proc, term)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// listen binds the unix socket, clearing a stale socket file left by a
// previous run.
func listen(socket string) (net.Listener, error) {
	if _, err := os.Stat(socket); err == nil {
		if err := os.Remove(socket); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socket, err)
	}
	return ln, nil
}
