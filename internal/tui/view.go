package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

// View implements tea.Model.
func (m Model) View() string {
	main := []string{m.renderHeader(), m.viewport.View()}
	if m.dev != nil {
		main = append(main, m.renderDevPane())
	}
	if pending := m.renderPending(); pending != "" {
		main = append(main, pending)
	}
	main = append(main,
		m.styles.Input.Width(m.viewport.Width).Render(m.input.View()),
		m.renderFooter(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSidebar(),
		lipgloss.JoinVertical(lipgloss.Left, main...),
	)
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("Conversations"))
	sb.WriteString("\n\n")

	if len(m.user.Conversations) == 0 {
		sb.WriteString(m.styles.Timestamp.Render("ctrl+n to start a chat"))
	}
	for _, c := range m.user.Conversations {
		marker := "  "
		if c.Starred {
			marker = "★ "
		}
		title := truncate(c.Title, sidebarWidth-6)
		line := marker + title
		if c.Active {
			sb.WriteString(m.styles.SidebarFocus.Render("› " + line))
		} else {
			sb.WriteString(m.styles.SidebarItem.Render("  " + line))
		}
		sb.WriteString("\n")
		if c.LastMessage != "" {
			sb.WriteString(m.styles.Timestamp.Render("    " + truncate(c.LastMessage, sidebarWidth-8)))
			sb.WriteString("\n")
		}
	}

	style := m.styles.Sidebar.Width(sidebarWidth)
	if m.height > 0 {
		style = style.Height(m.height)
	}
	return style.Render(sb.String())
}

func (m Model) renderHeader() string {
	title := "PlatePal"
	if m.user.Active != nil {
		title = m.user.Active.Title
	}
	info := fmt.Sprintf("mode: %s", m.user.Mode)
	if m.user.InFlight {
		info += " · waiting for backend"
	}
	if m.dev != nil {
		info += " · dev"
	}
	return m.styles.Header.Render(title) + "  " + m.styles.Timestamp.Render(info)
}

func (m Model) renderMessages() string {
	if m.user.Active == nil {
		return m.styles.Status.Render("No conversation selected.")
	}
	if len(m.user.Active.Messages) == 0 {
		return m.renderSuggestions()
	}

	var sb strings.Builder
	for _, msg := range m.user.Active.Messages {
		if msg.IsUser {
			sb.WriteString(m.styles.User.Render("You"))
			sb.WriteString(" " + m.styles.Timestamp.Render(msg.Timestamp) + "\n")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
			continue
		}
		sb.WriteString(m.styles.Assistant.Render("PlatePal"))
		sb.WriteString(" " + m.styles.Timestamp.Render(msg.Timestamp) + "\n")
		sb.WriteString(m.renderMarkdown(msg.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderSuggestions() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("Suggested prompts"))
	sb.WriteString(m.styles.Timestamp.Render("  (ctrl+p to use)"))
	sb.WriteString("\n\n")
	for _, p := range m.prompts.List() {
		sb.WriteString("• " + p.Title)
		if p.Description != "" {
			sb.WriteString(m.styles.Timestamp.Render(" · " + p.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderMarkdown(content string) (out string) {
	if m.renderer == nil {
		return content + "\n"
	}
	defer func() {
		if r := recover(); r != nil {
			out = content + "\n"
		}
	}()
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}

// renderDevPane shows the query and raw trace of the newest assistant message.
func (m Model) renderDevPane() string {
	body := "No backend trace yet."
	if m.dev.Active != nil {
		if msg, ok := latestTrace(m.dev.Active.Messages); ok {
			var sb strings.Builder
			if msg.QueryCode != "" {
				sb.WriteString("Query: " + msg.QueryCode + "\n")
			}
			sb.WriteString(msg.RawBackendPayload)
			body = clampLines(sb.String(), devPaneHeight)
		}
	}
	return m.styles.DevPane.Width(m.viewport.Width).Render(
		m.styles.Header.Render("Developer") + "\n" + body,
	)
}

func latestTrace(messages []view.MessageView) (view.MessageView, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if !msg.IsUser && (msg.QueryCode != "" || msg.RawBackendPayload != "") {
			return msg, true
		}
	}
	return view.MessageView{}, false
}

func (m Model) renderPending() string {
	p := m.user.Pending
	if p == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(p.Prompt + "\n")
	switch p.Type {
	case "confirm":
		if p.Query != nil {
			if data, err := json.Marshal(p.Query); err == nil {
				sb.WriteString(m.styles.Timestamp.Render(truncate(string(data), m.viewport.Width-4)) + "\n")
			}
		}
		sb.WriteString("[y]es  [n]o  [r]ewrite")
	case "collect":
		for i, f := range p.Fields {
			prefix := "  "
			if i == m.fieldIdx {
				prefix = "› "
			}
			sb.WriteString(fmt.Sprintf("%s%s = %s\n", prefix, f, p.Values[f]))
		}
	}
	return m.styles.Pending.Width(m.viewport.Width).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderFooter() string {
	help := "enter send · ctrl+n new · tab switch · ctrl+s star · ctrl+x delete · ctrl+o mode · ctrl+d dev · ctrl+p prompt · esc quit"
	if m.status != "" {
		return m.styles.Status.Render(m.status) + "\n" + m.styles.Help.Render(help)
	}
	return "\n" + m.styles.Help.Render(help)
}

func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func clampLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n-1], "\n") + "\n…"
}
