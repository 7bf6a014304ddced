// Package tui is the terminal chat client. It drives the same workspace as the
// HTTP server: a user view with an optional read-only developer pane.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/model/prompt"
	"github.com/zhouzirui/platepal/frontend/internal/service/session"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

const (
	sidebarWidth     = 30
	devPaneHeight    = 8
	inputPlaceholder = "Ask about recipes, nutrition or meal plans..."
)

// Options configures the client.
type Options struct {
	// GlamourStyle selects a glamour standard style. Empty means auto-detect.
	GlamourStyle string
}

// changedMsg reports that the workspace changed outside the update loop.
type changedMsg struct{}

// turnDoneMsg carries the resolution of a turn started from the client.
type turnDoneMsg struct {
	outcome session.Outcome
}

// Model is the bubbletea model of the chat client.
type Model struct {
	ctx       context.Context
	workspace *view.Workspace
	prompts   prompt.Store
	log       *zap.Logger
	opts      Options

	changes     chan struct{}
	unsubscribe func()

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   styles

	width  int
	height int

	user      view.State
	dev       *view.State
	promptIdx int
	fieldIdx  int
	status    string
}

// New builds the client model over workspace.
func New(ctx context.Context, workspace *view.Workspace, prompts prompt.Store, log *zap.Logger, opts Options) Model {
	if log == nil {
		log = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = inputPlaceholder
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Focus()

	m := Model{
		ctx:       ctx,
		workspace: workspace,
		prompts:   prompts,
		log:       log,
		opts:      opts,
		changes:   make(chan struct{}, 1),
		input:     ti,
		viewport:  viewport.New(80, 20),
		styles:    defaultStyles(),
	}

	changes := m.changes
	m.unsubscribe = workspace.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	m.refresh()
	return m
}

// Close detaches the model from the workspace.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changes))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func waitForTurn(t *session.Turn) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{outcome: t.Wait()}
	}
}

// Run starts the program on the alternate screen and blocks until it exits.
func Run(ctx context.Context, workspace *view.Workspace, prompts prompt.Store, log *zap.Logger, opts Options) error {
	m := New(ctx, workspace, prompts, log, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
