package tui

import (
	"fmt"
	"strings"

	"chat-widget/internal/config"
	"chat-widget/internal/widget"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const defaultAccent = "#4F46E5"

var (
	userStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	sectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

func (m Model) accent() lipgloss.Color {
	if m.cfg.AccentColor == "" {
		return lipgloss.Color(defaultAccent)
	}
	return lipgloss.Color(m.cfg.AccentColor)
}

func (m Model) windowWidth() int {
	w := m.width
	if w > maxWindowWidth {
		w = maxWindowWidth
	}
	if w < minWindowWidth {
		w = minWindowWidth
	}
	return w
}

// resize fits the viewport and markdown renderer to the window.
func (m *Model) resize() {
	inner := m.windowWidth() - 4
	m.viewport.Width = inner

	// header, input, help, border and some breathing room
	h := m.height - 10
	if h < 4 {
		h = 4
	}
	m.viewport.Height = h
	m.input.Width = inner - 2
	m.help.Width = inner

	if inner != m.renderWidth {
		m.renderWidth = inner
		m.rendered = make(map[string]string)
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(inner),
		)
		if err != nil {
			m.logger.Debug().Err(err).Msg("markdown renderer unavailable")
		}
		m.renderer = r
	}
}

// refresh rebuilds the transcript view and keeps it scrolled to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.transcriptView())
	m.viewport.GotoBottom()
}

func (m *Model) markdown(s string) string {
	if m.renderer == nil {
		return s
	}
	if out, ok := m.rendered[s]; ok {
		return out
	}
	out, err := m.renderer.Render(s)
	if err != nil {
		return s
	}
	out = strings.Trim(out, "\n")
	m.rendered[s] = out
	return out
}

func (m *Model) transcriptView() string {
	var b strings.Builder
	name := m.cfg.DisplayName
	if name == "" {
		name = "Assistant"
	}

	if m.state.Welcome != "" {
		b.WriteString(mutedStyle.Render(name))
		b.WriteString("\n")
		b.WriteString(m.markdown(m.state.Welcome))
		b.WriteString("\n")
	}

	for _, e := range m.state.Transcript {
		switch e.Role {
		case widget.RoleUser:
			label := userStyle.Foreground(m.accent()).Render("You")
			switch e.Status {
			case widget.StatusPending:
				label += mutedStyle.Render(" (sending)")
			case widget.StatusFailed:
				label += failedStyle.Render(" (not delivered)")
			}
			b.WriteString(label + "\n" + e.Content + "\n")
		default:
			b.WriteString(mutedStyle.Render(name) + "\n" + m.markdown(e.Content) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) View() string {
	if !m.state.Open {
		return m.place(m.launcherView())
	}

	w := m.windowWidth()
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(m.accent()).
		Padding(0, 1).
		Width(w - 2).
		Render(m.headerText())

	parts := []string{header, m.viewport.View()}

	if m.state.SuggestionsVisible() && m.state.Overlay == widget.OverlayNone {
		parts = append(parts, m.suggestionsView())
	}

	switch m.state.Overlay {
	case widget.OverlayLeadForm:
		parts = append(parts, m.leadView())
	case widget.OverlayEmailForm:
		parts = append(parts, m.emailView())
	default:
		parts = append(parts, m.inputView())
	}

	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, m.help.View(m.keys))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.accent()).
		Width(w - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return m.place(box)
}

func (m Model) headerText() string {
	name := m.cfg.DisplayName
	if name == "" {
		name = "Chat"
	}
	return name
}

func (m Model) launcherView() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(m.accent()).
		Padding(0, 2).
		Render(fmt.Sprintf("%s  (ctrl+w to chat)", m.headerText()))
}

// place aligns the window to the configured side of the terminal.
func (m Model) place(s string) string {
	pos := lipgloss.Right
	if m.cfg.Position == config.PositionBottomLeft {
		pos = lipgloss.Left
	}
	width := m.width
	if width < lipgloss.Width(s) {
		width = lipgloss.Width(s)
	}
	return lipgloss.PlaceHorizontal(width, pos, s)
}

func (m Model) suggestionsView() string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render("Suggested questions"))
	for i, q := range m.state.Suggestions {
		if i >= 9 {
			break
		}
		b.WriteString(fmt.Sprintf("\n %d. %s", i+1, q))
	}
	return b.String()
}

func (m Model) inputView() string {
	if m.state.Sending {
		return m.spinner.View() + " " + mutedStyle.Render("Thinking...")
	}
	return m.input.View()
}

func (m Model) leadView() string {
	lines := []string{sectionStyle.Render("Leave your details and we'll get back to you")}
	for _, in := range m.lead {
		lines = append(lines, in.View())
	}
	hint := "enter submit · tab next · esc later"
	if m.state.LeadSubmitting {
		hint = m.spinner.View() + " Saving..."
	}
	lines = append(lines, mutedStyle.Render(hint))
	return strings.Join(lines, "\n")
}

func (m Model) emailView() string {
	hint := "enter send · esc cancel"
	if m.state.EmailSending {
		hint = m.spinner.View() + " Sending..."
	}
	return strings.Join([]string{
		sectionStyle.Render("Email this conversation"),
		m.email.View(),
		mutedStyle.Render(hint),
	}, "\n")
}
