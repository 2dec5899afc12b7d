package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	"chat-widget/internal/config"
	"chat-widget/internal/dto"
	"chat-widget/internal/session"
	"chat-widget/internal/storage"
	"chat-widget/internal/widget"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAPI struct {
	mu          sync.Mutex
	capture     bool
	suggestions []string
	sent        []string
	leads       []dto.LeadRequest
}

func (s *stubAPI) SendMessage(_ context.Context, req dto.ChatRequest) (dto.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req.Message)
	return dto.ChatResponse{Response: "reply", SessionID: req.SessionID}, nil
}

func (s *stubAPI) ShouldCaptureLead(context.Context, string, string) (bool, error) {
	return s.capture, nil
}

func (s *stubAPI) SubmitLead(_ context.Context, req dto.LeadRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, req)
	return nil
}

func (s *stubAPI) EmailConversation(context.Context, dto.EmailConversationRequest) error {
	return nil
}

func (s *stubAPI) SuggestedQuestions(context.Context, string) ([]string, error) {
	return s.suggestions, nil
}

func newTestModel(t *testing.T, api *stubAPI) (Model, *widget.Controller) {
	t.Helper()
	cfg := config.Widget{
		ID:             "w1",
		APIURL:         "http://localhost:8000",
		DisplayName:    "Shop Helper",
		WelcomeMessage: "Welcome!",
		AccentColor:    "#FF0000",
		Position:       config.PositionBottomLeft,
	}
	sessions := session.NewStore(storage.NewMemory(), zerolog.Nop())
	ctrl := widget.New(cfg, api, sessions, zerolog.Nop())
	m := New(context.Background(), ctrl, zerolog.Nop())
	t.Cleanup(m.cancel)
	return m, ctrl
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func syncState(t *testing.T, m Model, ctrl *widget.Controller) Model {
	t.Helper()
	m, _ = update(t, m, stateMsg{state: ctrl.Snapshot()})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestClosedViewShowsLauncher(t *testing.T) {
	m, _ := newTestModel(t, &stubAPI{})

	view := m.View()
	assert.Contains(t, view, "Shop Helper")
	assert.Contains(t, view, "ctrl+w")
}

func TestOpenViewShowsTranscript(t *testing.T) {
	m, ctrl := newTestModel(t, &stubAPI{})
	ctx := context.Background()

	ctrl.Open(ctx)
	require.NoError(t, ctrl.SendMessage(ctx, "hello"))
	m = syncState(t, m, ctrl)

	view := m.View()
	assert.Contains(t, view, "Shop Helper")
	assert.Contains(t, view, "hello")
}

func TestStaleStateIsIgnored(t *testing.T) {
	m, ctrl := newTestModel(t, &stubAPI{})
	ctrl.Open(context.Background())
	m = syncState(t, m, ctrl)
	require.True(t, m.state.Open)

	old := m.state
	old.Version--
	old.Open = false
	m, _ = update(t, m, stateMsg{state: old})
	assert.True(t, m.state.Open)
}

func TestEnterSendsInput(t *testing.T) {
	api := &stubAPI{}
	m, ctrl := newTestModel(t, api)
	ctrl.Open(context.Background())
	m = syncState(t, m, ctrl)

	m, _ = update(t, m, runes("hi there"))
	assert.Equal(t, "hi there", ctrl.Snapshot().Draft)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	action, ok := msg.(actionMsg)
	require.True(t, ok)
	require.NoError(t, action.err)
	assert.Equal(t, []string{"hi there"}, api.sent)
}

func TestPickSuggestion(t *testing.T) {
	api := &stubAPI{suggestions: []string{"First?", "Second?"}}
	m, ctrl := newTestModel(t, api)
	ctrl.Open(context.Background())
	m = syncState(t, m, ctrl)
	require.True(t, m.state.SuggestionsVisible())
	assert.Contains(t, m.View(), "Second?")

	_, cmd := update(t, m, runes("2"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"Second?"}, api.sent)
}

func TestLeadFormFlow(t *testing.T) {
	api := &stubAPI{capture: true}
	m, ctrl := newTestModel(t, api)
	ctx := context.Background()

	ctrl.Open(ctx)
	require.NoError(t, ctrl.SendMessage(ctx, "hello"))
	m = syncState(t, m, ctrl)
	require.Equal(t, widget.OverlayLeadForm, m.state.Overlay)
	assert.Equal(t, 0, m.leadFocus)

	m, _ = update(t, m, runes("Ada"))
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.leadFocus)
	m, _ = update(t, m, runes("ada@example.com"))

	assert.Equal(t, dto.LeadDraft{Name: "Ada", Email: "ada@example.com"}, ctrl.Snapshot().LeadDraft)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	action := cmd().(actionMsg)
	require.NoError(t, action.err)

	require.Len(t, api.leads, 1)
	assert.Equal(t, "Ada", api.leads[0].Name)
	assert.Equal(t, widget.OverlayNone, ctrl.Snapshot().Overlay)
}

func TestEscDismissesLeadForm(t *testing.T) {
	api := &stubAPI{capture: true}
	m, ctrl := newTestModel(t, api)
	ctx := context.Background()

	ctrl.Open(ctx)
	require.NoError(t, ctrl.SendMessage(ctx, "hello"))
	m = syncState(t, m, ctrl)

	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, widget.OverlayNone, ctrl.Snapshot().Overlay)
}

func TestToggleWindow(t *testing.T) {
	m, ctrl := newTestModel(t, &stubAPI{})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlW})
	require.NotNil(t, cmd)
	cmd()
	assert.True(t, ctrl.Snapshot().Open)

	m = syncState(t, m, ctrl)
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.False(t, ctrl.Snapshot().Open)
}

func TestStatusText(t *testing.T) {
	assert.Empty(t, statusText(nil))
	assert.Empty(t, statusText(widget.ErrEmptyMessage))
	assert.True(t, strings.HasPrefix(statusText(widget.ErrBusy), "Still working"))
	assert.Contains(t, statusText(widget.ErrInvalidEmail), "valid email")
}

func TestResetShowsSuggestionsAgain(t *testing.T) {
	api := &stubAPI{suggestions: []string{"First?"}}
	m, ctrl := newTestModel(t, api)
	ctrl.Open(context.Background())
	m = syncState(t, m, ctrl)

	m, _ = update(t, m, runes("abc"))
	require.False(t, ctrl.Snapshot().SuggestionsVisible())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	cmd()
	m = syncState(t, m, ctrl)

	assert.Empty(t, m.input.Value())
	assert.Empty(t, ctrl.Snapshot().Draft)
	assert.True(t, m.state.SuggestionsVisible())
	assert.Contains(t, m.View(), "First?")
}

func TestResetFromLeadForm(t *testing.T) {
	api := &stubAPI{capture: true}
	m, ctrl := newTestModel(t, api)
	ctx := context.Background()

	ctrl.Open(ctx)
	require.NoError(t, ctrl.SendMessage(ctx, "hello"))
	m = syncState(t, m, ctrl)
	require.Equal(t, widget.OverlayLeadForm, m.state.Overlay)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	cmd()

	got := ctrl.Snapshot()
	assert.Equal(t, widget.OverlayNone, got.Overlay)
	assert.Empty(t, got.Transcript)
}
