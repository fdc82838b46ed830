// Package ui implements the terminal inspector: a live, filterable view of
// the synchronized tree and the state of each realized widget.
package ui

import (
	"reflect"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dcmaui/uibridge/internal/processor"
	"github.com/dcmaui/uibridge/internal/theme"
	uistate "github.com/dcmaui/uibridge/internal/ui/state"
)

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// treeUpdateMsg is delivered whenever the factory reports a change.
type treeUpdateMsg struct{}

// Model implements the Bubble Tea model for the inspector.
type Model struct {
	proc    *processor.Processor
	factory *TermFactory

	list      *uistate.List
	filter    textinput.Model
	hierarchy string
	width     int
	height    int

	handlers map[reflect.Type]msgHandler
}

func NewModel(proc *processor.Processor, factory *TermFactory) *Model {
	filter := textinput.New()
	filter.Placeholder = "filter views"
	filter.Prompt = "/ "
	if styles.FilterPrompt != nil {
		filter.PromptStyle = *styles.FilterPrompt
	}
	if styles.Filter != nil {
		filter.TextStyle = *styles.Filter
	}
	filter.Focus()

	m := &Model{
		proc:    proc,
		factory: factory,
		list:    uistate.NewList(nil),
		filter:  filter,
	}
	m.refresh()
	m.registerHandlers()
	return m
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKey,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleResize,
		reflect.TypeOf(treeUpdateMsg{}):     m.handleTreeUpdate,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if m.handlers == nil {
		return nil
	}
	return m.handlers[reflect.TypeOf(msg)]
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForTreeUpdate(m.factory), textinput.Blink}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handler := m.handlerFor(msg); handler != nil {
		return m, handler(msg)
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "ctrl+c", "esc":
		return tea.Quit
	case "up", "ctrl+p":
		m.list.MoveCursor(-1)
		return nil
	case "down", "ctrl+n":
		m.list.MoveCursor(1)
		return nil
	case "home":
		m.list.MoveCursorHome()
		return nil
	case "end":
		m.list.MoveCursorEnd()
		return nil
	case "pgup":
		m.list.MoveCursor(-m.maxVisibleItems())
		return nil
	case "pgdown":
		m.list.MoveCursor(m.maxVisibleItems())
		return nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.list.SetFilter(m.filter.Value())
	return cmd
}

func (m *Model) handleResize(msg tea.Msg) tea.Cmd {
	size, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	m.width = size.Width
	m.height = size.Height
	return nil
}

func (m *Model) handleTreeUpdate(tea.Msg) tea.Cmd {
	m.refresh()
	return waitForTreeUpdate(m.factory)
}

// refresh re-snapshots the processor and factory into the item list.
func (m *Model) refresh() {
	m.hierarchy = m.proc.DescribeHierarchy()
	widgets := m.factory.Snapshot()
	items := make([]uistate.Item, 0, len(widgets))
	for _, w := range widgets {
		label := w.ID
		if w.Text != "" {
			label += " " + quote(w.Text)
		}
		items = append(items, uistate.Item{ID: w.ID, Label: label})
	}
	m.list.SetItems(items)
	m.list.SetFilter(m.filter.Value())
}

func waitForTreeUpdate(factory *TermFactory) tea.Cmd {
	return func() tea.Msg {
		<-factory.Updates()
		return treeUpdateMsg{}
	}
}

func quote(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	return "\"" + text + "\""
}
