package tui

import (
	"context"
	"errors"
	"strings"

	"chat-widget/internal/config"
	"chat-widget/internal/dto"
	"chat-widget/internal/widget"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
)

const (
	maxWindowWidth = 64
	minWindowWidth = 28
)

var leadFields = []string{"Name", "Email", "Phone", "Company"}

// Model is the terminal host for one widget controller.
type Model struct {
	ctx    context.Context
	ctrl   *widget.Controller
	cfg    config.Widget
	logger zerolog.Logger

	updates chan widget.State
	cancel  func()
	state   widget.State

	input     textinput.Model
	email     textinput.Model
	lead      []textinput.Model
	leadFocus int

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	renderer    *glamour.TermRenderer
	renderWidth int
	rendered    map[string]string

	width  int
	height int
	status string
}

type stateMsg struct {
	state widget.State
}

type actionMsg struct {
	op  string
	err error
}

func New(ctx context.Context, ctrl *widget.Controller, logger zerolog.Logger) Model {
	updates := make(chan widget.State, 32)
	cancel := ctrl.Subscribe(func(s widget.State) {
		select {
		case updates <- s:
			return
		default:
		}
		// Full: drop the oldest snapshot, newer versions supersede it.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})

	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	em := textinput.New()
	em.Placeholder = "you@example.com"
	em.Prompt = "Email: "
	em.CharLimit = 254

	lead := make([]textinput.Model, len(leadFields))
	for i, name := range leadFields {
		in := textinput.New()
		in.Prompt = name + ": "
		in.CharLimit = 256
		lead[i] = in
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	h := help.New()
	h.ShowAll = false

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		cfg:      ctrl.Config(),
		logger:   logger,
		updates:  updates,
		cancel:   cancel,
		state:    ctrl.Snapshot(),
		input:    ti,
		email:    em,
		lead:     lead,
		viewport: viewport.New(maxWindowWidth-4, 12),
		spinner:  sp,
		help:     h,
		keys:     defaultKeys(),
		rendered: make(map[string]string),
		width:    maxWindowWidth,
		height:   24,
	}
	m.resize()
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForState(m.updates), m.open())
}

func waitForState(ch <-chan widget.State) tea.Cmd {
	return func() tea.Msg {
		return stateMsg{state: <-ch}
	}
}

func (m Model) do(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) open() tea.Cmd {
	ctrl := m.ctrl
	return m.do("open", func(ctx context.Context) error {
		ctrl.Open(ctx)
		return nil
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case stateMsg:
		m.applyState(msg.state)
		return m, waitForState(m.updates)

	case actionMsg:
		m.status = statusText(msg.err)
		if msg.err != nil && !errors.Is(msg.err, widget.ErrEmptyMessage) {
			m.logger.Debug().Err(msg.err).Str("op", msg.op).Msg("action rejected")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyState(s widget.State) {
	if s.Version <= m.state.Version {
		return
	}
	prev := m.state
	m.state = s

	if s.Overlay != prev.Overlay {
		m.input.Blur()
		m.email.Blur()
		for i := range m.lead {
			m.lead[i].Blur()
		}
		switch s.Overlay {
		case widget.OverlayLeadForm:
			m.loadLead(s.LeadDraft)
		case widget.OverlayEmailForm:
			m.email.Reset()
			m.email.Focus()
		default:
			m.input.Focus()
		}
	}
	m.refresh()
}

func (m *Model) loadLead(d dto.LeadDraft) {
	values := []string{d.Name, d.Email, d.Phone, d.Company}
	for i := range m.lead {
		m.lead[i].SetValue(values[i])
	}
	m.focusLead(0)
}

func (m *Model) focusLead(i int) {
	n := len(m.lead)
	i = ((i % n) + n) % n
	for j := range m.lead {
		m.lead[j].Blur()
	}
	m.leadFocus = i
	m.lead[i].Focus()
}

func (m Model) leadDraft() dto.LeadDraft {
	return dto.LeadDraft{
		Name:    m.lead[0].Value(),
		Email:   m.lead[1].Value(),
		Phone:   m.lead[2].Value(),
		Company: m.lead[3].Value(),
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		ctrl.Detach()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		if m.state.Open {
			ctrl.Close()
			return m, nil
		}
		return m, m.open()
	}

	if !m.state.Open {
		return m, nil
	}

	// Reset works from any form.
	if key.Matches(msg, m.keys.Reset) {
		m.input.Reset()
		m.email.Reset()
		m.status = ""
		return m, m.do("reset", func(ctx context.Context) error {
			ctrl.ResetChat(ctx)
			return nil
		})
	}

	switch m.state.Overlay {
	case widget.OverlayLeadForm:
		return m.leadKey(msg)
	case widget.OverlayEmailForm:
		return m.emailKey(msg)
	default:
		return m.chatKey(msg)
	}
}

func (m Model) chatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.Send):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if !m.state.CanSend() {
			m.status = statusText(widget.ErrBusy)
			return m, nil
		}
		m.input.Reset()
		return m, m.do("send", func(ctx context.Context) error {
			return ctrl.SendMessage(ctx, text)
		})

	case key.Matches(msg, m.keys.Email):
		ctrl.ToggleEmailForm()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Pick) && m.state.SuggestionsVisible() && m.state.CanSend():
		i := int(msg.String()[0] - '1')
		if i < len(m.state.Suggestions) {
			question := m.state.Suggestions[i]
			return m, m.do("send", func(ctx context.Context) error {
				return ctrl.SendMessage(ctx, question)
			})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	ctrl.SetDraft(m.input.Value())
	return m, cmd
}

func (m Model) leadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.Later):
		ctrl.DismissLead()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		m.focusLead(m.leadFocus + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.focusLead(m.leadFocus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Email):
		ctrl.UpdateLead(m.leadDraft())
		ctrl.ToggleEmailForm()
		return m, nil
	case key.Matches(msg, m.keys.Send):
		ctrl.UpdateLead(m.leadDraft())
		return m, m.do("submit_lead", ctrl.SubmitLead)
	}

	var cmd tea.Cmd
	m.lead[m.leadFocus], cmd = m.lead[m.leadFocus].Update(msg)
	ctrl.UpdateLead(m.leadDraft())
	return m, cmd
}

func (m Model) emailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	switch {
	case key.Matches(msg, m.keys.Later), key.Matches(msg, m.keys.Email):
		ctrl.ToggleEmailForm()
		return m, nil
	case key.Matches(msg, m.keys.Send):
		email := m.email.Value()
		return m, m.do("email_transcript", func(ctx context.Context) error {
			return ctrl.SubmitEmail(ctx, email)
		})
	}

	var cmd tea.Cmd
	m.email, cmd = m.email.Update(msg)
	return m, cmd
}

func statusText(err error) string {
	switch {
	case err == nil, errors.Is(err, widget.ErrEmptyMessage):
		return ""
	case errors.Is(err, widget.ErrBusy):
		return "Still working on the last request."
	case errors.Is(err, widget.ErrInvalidLead):
		return "Please enter your name and a valid email."
	case errors.Is(err, widget.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, widget.ErrClosed):
		return "This chat has been closed."
	default:
		return err.Error()
	}
}
