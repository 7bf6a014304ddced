package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/session"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case turnDoneMsg:
		m.status = outcomeStatus(msg.outcome)
		m.fieldIdx = 0
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	user := m.workspace.User()
	store := user.Store()

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "ctrl+n":
		conv := store.NewConversation()
		m.status = "Started " + conv.Title
		m.refresh()
		return m, nil

	case "tab", "shift+tab":
		step := 1
		if msg.String() == "shift+tab" {
			step = -1
		}
		m.cycleConversation(step)
		m.refresh()
		return m, nil

	case "ctrl+s":
		if active, ok := store.Active(); ok {
			_ = store.SetStarred(active.ID, !active.Starred)
		}
		m.refresh()
		return m, nil

	case "ctrl+x":
		if id := store.ActiveID(); id != "" {
			_ = store.Delete(id)
			m.status = "Conversation deleted"
		}
		m.refresh()
		return m, nil

	case "ctrl+o":
		mode := user.Mode().Toggle()
		user.SetMode(mode)
		if dev, ok := m.workspace.Developer(); ok {
			dev.SetMode(mode)
		}
		m.status = fmt.Sprintf("Mode: %s", mode)
		m.refresh()
		return m, nil

	case "ctrl+d":
		m.workspace.SetDevMode(!m.workspace.DevMode())
		m.resize(m.width, m.height)
		m.refresh()
		return m, nil

	case "ctrl+p":
		if p, ok := m.prompts.At(m.promptIdx); ok {
			m.promptIdx++
			m.input.SetValue(p.Prompt)
			m.input.CursorEnd()
			m.status = p.Title
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch user.State() {
	case session.AwaitingConfirmation:
		return m.handleConfirmKey(msg)
	case session.AwaitingFields:
		if msg.String() == "enter" {
			return m.handleFieldEnter()
		}
	default:
		if msg.String() == "enter" {
			return m.handleSubmit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	turn, ok := m.workspace.User().Submit(m.ctx, m.input.Value())
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.status = "Thinking..."
	m.refresh()
	return m, waitForTurn(turn)
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var option string
	switch msg.String() {
	case "y":
		option = "yes"
	case "n":
		option = "no"
	case "r":
		option = "rewrite"
	default:
		return m, nil
	}

	turn, err := m.workspace.User().Confirm(m.ctx, option)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = "Sent " + option
	m.refresh()
	return m, waitForTurn(turn)
}

// handleFieldEnter stores the current field and advances; the last field submits.
func (m Model) handleFieldEnter() (tea.Model, tea.Cmd) {
	user := m.workspace.User()
	collect, ok := user.Status().Pending.(chat.Collect)
	if !ok {
		return m, nil
	}

	if m.fieldIdx < len(collect.Fields) {
		if err := user.SetField(collect.Fields[m.fieldIdx], m.input.Value()); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.fieldIdx++
		m.input.Reset()
	}

	if m.fieldIdx < len(collect.Fields) {
		m.refresh()
		return m, nil
	}

	turn, err := user.SubmitFields(m.ctx)
	if err != nil {
		if !errors.Is(err, session.ErrTurnInFlight) {
			m.log.Warn("field submission rejected", zap.Error(err))
		}
		m.status = err.Error()
		return m, nil
	}
	m.fieldIdx = 0
	m.status = "Submitting..."
	m.refresh()
	return m, waitForTurn(turn)
}

func (m *Model) cycleConversation(step int) {
	convs := m.user.Conversations
	if len(convs) == 0 {
		return
	}
	current := 0
	for i, c := range convs {
		if c.Active {
			current = i
			break
		}
	}
	next := (current + step + len(convs)) % len(convs)
	_ = m.workspace.User().Store().Select(convs[next].ID)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height

	chatWidth := width - sidebarWidth - 2
	if chatWidth < 20 {
		chatWidth = 20
	}
	// header, pending panel, input box and help line
	chrome := 9
	if m.workspace.DevMode() {
		chrome += devPaneHeight + 2
	}
	vpHeight := height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = vpHeight
	m.input.Width = chatWidth - 6

	styleOpt := glamour.WithAutoStyle()
	if m.opts.GlamourStyle != "" {
		styleOpt = glamour.WithStandardStyle(m.opts.GlamourStyle)
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(chatWidth-4))
	if err != nil {
		m.log.Warn("markdown renderer unavailable", zap.Error(err))
		return
	}
	m.renderer = renderer
}

// refresh re-renders both views and the message viewport.
func (m *Model) refresh() {
	m.user = view.Render(m.workspace.User(), view.User, "")
	m.dev = nil
	if dev, err := m.workspace.Render(view.Developer, ""); err == nil {
		m.dev = &dev
	}

	switch p := m.user.Pending; {
	case p != nil && p.Type == "collect" && m.fieldIdx < len(p.Fields):
		m.input.Placeholder = fmt.Sprintf("%s (%d/%d)", p.Fields[m.fieldIdx], m.fieldIdx+1, len(p.Fields))
	case p != nil && p.Type == "confirm":
		m.input.Placeholder = "Press y, n or r"
	default:
		m.input.Placeholder = inputPlaceholder
	}

	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func outcomeStatus(o session.Outcome) string {
	switch o.Kind {
	case session.OutcomeConfirming:
		return "Confirmation required: y / n / r"
	case session.OutcomeCollecting:
		return "Enter the requested fields"
	case session.OutcomeTransportError, session.OutcomeSubmitFailed:
		return "Backend unavailable"
	default:
		return ""
	}
}

var _ tea.Model = Model{}
