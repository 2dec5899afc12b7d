package widget

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chat-widget/internal/config"
	"chat-widget/internal/dto"
	"chat-widget/internal/session"
	"chat-widget/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type fakeAPI struct {
	mu sync.Mutex

	sendFn    func(context.Context, dto.ChatRequest) (dto.ChatResponse, error)
	captureFn func(context.Context, string, string) (bool, error)
	leadFn    func(context.Context, dto.LeadRequest) error
	emailFn   func(context.Context, dto.EmailConversationRequest) error
	suggestFn func(context.Context, string) ([]string, error)

	sendCalls    []dto.ChatRequest
	captureCalls int
	leadCalls    []dto.LeadRequest
	emailCalls   []dto.EmailConversationRequest
	suggestCalls int
}

func (f *fakeAPI) SendMessage(ctx context.Context, req dto.ChatRequest) (dto.ChatResponse, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, req)
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return dto.ChatResponse{Response: "echo: " + req.Message, SessionID: req.SessionID}, nil
	}
	return fn(ctx, req)
}

func (f *fakeAPI) ShouldCaptureLead(ctx context.Context, sessionID, widgetID string) (bool, error) {
	f.mu.Lock()
	f.captureCalls++
	fn := f.captureFn
	f.mu.Unlock()
	if fn == nil {
		return false, nil
	}
	return fn(ctx, sessionID, widgetID)
}

func (f *fakeAPI) SubmitLead(ctx context.Context, req dto.LeadRequest) error {
	f.mu.Lock()
	f.leadCalls = append(f.leadCalls, req)
	fn := f.leadFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, req)
}

func (f *fakeAPI) EmailConversation(ctx context.Context, req dto.EmailConversationRequest) error {
	f.mu.Lock()
	f.emailCalls = append(f.emailCalls, req)
	fn := f.emailFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, req)
}

func (f *fakeAPI) SuggestedQuestions(ctx context.Context, widgetID string) ([]string, error) {
	f.mu.Lock()
	f.suggestCalls++
	fn := f.suggestFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, widgetID)
}

func (f *fakeAPI) counts() (send, capture, lead, email, suggest int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendCalls), f.captureCalls, len(f.leadCalls), len(f.emailCalls), f.suggestCalls
}

// gate blocks a fake call until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait() {
	g.started <- struct{}{}
	<-g.release
}

var testConfig = config.Widget{
	ID:             "w1",
	APIURL:         "http://localhost:8000",
	DisplayName:    "Helper",
	WelcomeMessage: "Hi! Ask me anything.",
	Position:       config.PositionBottomRight,
	ShopDomain:     "shop.example.com",
	CustomerID:     "cust-9",
}

func newTestController(api API) (*Controller, *storage.Memory) {
	mem := storage.NewMemory()
	sessions := session.NewStore(mem, zerolog.Nop())
	return New(testConfig, api, sessions, zerolog.Nop()), mem
}

func TestSendMessageScenario(t *testing.T) {
	api := &fakeAPI{sendFn: func(context.Context, dto.ChatRequest) (dto.ChatResponse, error) {
		return dto.ChatResponse{Response: "hi there", SessionID: "s1"}, nil
	}}
	c, _ := newTestController(api)

	var seen []State
	c.Subscribe(func(s State) { seen = append(seen, s) })

	require.NoError(t, c.SendMessage(context.Background(), "hello"))

	require.NotEmpty(t, seen)
	assert.Equal(t, []Entry{{Role: RoleUser, Content: "hello", Status: StatusPending}}, seen[0].Transcript)
	assert.True(t, seen[0].Sending)

	got := c.Snapshot()
	assert.Equal(t, []Entry{
		{Role: RoleUser, Content: "hello", Status: StatusDelivered},
		{Role: RoleAssistant, Content: "hi there", Status: StatusDelivered},
	}, got.Transcript)
	assert.False(t, got.Sending)
	assert.Equal(t, OverlayNone, got.Overlay)
}

func TestSendMessageRequestFields(t *testing.T) {
	api := &fakeAPI{}
	c, mem := newTestController(api)

	require.NoError(t, c.SendMessage(context.Background(), "  hello  "))

	stored, ok, err := mem.GetItem(context.Background(), session.StorageKey("w1"))
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, api.sendCalls, 1)
	assert.Equal(t, dto.ChatRequest{
		Message:    "hello",
		SessionID:  stored,
		WidgetID:   "w1",
		ShopDomain: "shop.example.com",
		CustomerID: "cust-9",
	}, api.sendCalls[0])
}

func TestSendMessageFailureScenario(t *testing.T) {
	api := &fakeAPI{sendFn: func(context.Context, dto.ChatRequest) (dto.ChatResponse, error) {
		return dto.ChatResponse{}, errBackend
	}}
	c, _ := newTestController(api)

	require.NoError(t, c.SendMessage(context.Background(), "hello"))

	got := c.Snapshot()
	assert.Equal(t, []Entry{
		{Role: RoleUser, Content: "hello", Status: StatusFailed},
		{Role: RoleAssistant, Content: "Sorry, something went wrong. Please try again.", Status: StatusDelivered},
	}, got.Transcript)
	assert.True(t, got.CanSend())

	_, capture, _, _, _ := api.counts()
	assert.Zero(t, capture)

	api.sendFn = nil
	require.NoError(t, c.SendMessage(context.Background(), "again"))
	assert.Len(t, c.Snapshot().Transcript, 4)
}

func TestSendEmptyMessage(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)

	for _, text := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, c.SendMessage(context.Background(), text), ErrEmptyMessage)
	}

	send, _, _, _, _ := api.counts()
	assert.Zero(t, send)
	assert.Empty(t, c.Snapshot().Transcript)
}

func TestSendIsSingleFlight(t *testing.T) {
	g := newGate()
	api := &fakeAPI{sendFn: func(context.Context, dto.ChatRequest) (dto.ChatResponse, error) {
		g.wait()
		return dto.ChatResponse{Response: "done"}, nil
	}}
	c, _ := newTestController(api)

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(context.Background(), "first") }()
	<-g.started

	assert.ErrorIs(t, c.SendMessage(context.Background(), "second"), ErrBusy)
	assert.False(t, c.Snapshot().CanSend())
	assert.Len(t, c.Snapshot().Transcript, 1)

	close(g.release)
	require.NoError(t, <-done)

	send, _, _, _, _ := api.counts()
	assert.Equal(t, 1, send)
	assert.Equal(t, []Entry{
		{Role: RoleUser, Content: "first", Status: StatusDelivered},
		{Role: RoleAssistant, Content: "done", Status: StatusDelivered},
	}, c.Snapshot().Transcript)
}

func TestLeadFormOpensOnce(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, _ := newTestController(api)

	opened := 0
	last := OverlayNone
	c.Subscribe(func(s State) {
		if s.Overlay == OverlayLeadForm && last != OverlayLeadForm {
			opened++
		}
		last = s.Overlay
	})

	require.NoError(t, c.SendMessage(context.Background(), "hello"))
	assert.Equal(t, OverlayLeadForm, c.Snapshot().Overlay)

	// The form is already open, so no further check happens.
	require.NoError(t, c.SendMessage(context.Background(), "more"))
	assert.Equal(t, 1, opened)

	_, capture, _, _, _ := api.counts()
	assert.Equal(t, 1, capture)
}

func TestLeadCheckUsesSession(t *testing.T) {
	var gotSession, gotWidget string
	api := &fakeAPI{captureFn: func(_ context.Context, sessionID, widgetID string) (bool, error) {
		gotSession, gotWidget = sessionID, widgetID
		return false, nil
	}}
	c, _ := newTestController(api)

	require.NoError(t, c.SendMessage(context.Background(), "hello"))
	assert.Equal(t, c.Snapshot().SessionID, gotSession)
	assert.Equal(t, "w1", gotWidget)
}

func TestLeadCheckFailureIsFalse(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return false, errBackend }}
	c, _ := newTestController(api)

	require.NoError(t, c.SendMessage(context.Background(), "hello"))

	got := c.Snapshot()
	assert.Equal(t, OverlayNone, got.Overlay)
	assert.False(t, got.Sending)
	assert.Len(t, got.Transcript, 2)
}

func TestNoLeadPromptAfterSubmission(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "hello"))
	c.UpdateLead(dto.LeadDraft{Name: "Ada", Email: "ada@example.com", Phone: "555", Company: "ACME"})
	require.NoError(t, c.SubmitLead(ctx))

	got := c.Snapshot()
	assert.True(t, got.LeadSubmitted)
	assert.Equal(t, OverlayNone, got.Overlay)
	assert.Equal(t, MsgLeadSaved, got.Transcript[len(got.Transcript)-1].Content)
	assert.Equal(t, dto.LeadDraft{}, got.LeadDraft)

	require.NoError(t, c.SendMessage(ctx, "again"))
	assert.Equal(t, OverlayNone, c.Snapshot().Overlay)

	_, capture, lead, _, _ := api.counts()
	assert.Equal(t, 1, capture)
	assert.Equal(t, 1, lead)
	assert.Equal(t, dto.LeadRequest{
		SessionID: got.SessionID,
		WidgetID:  "w1",
		Name:      "Ada",
		Email:     "ada@example.com",
		Phone:     "555",
		Company:   "ACME",
	}, api.leadCalls[0])
}

func TestDismissLeadAllowsLaterPrompt(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "hello"))
	c.UpdateLead(dto.LeadDraft{Name: "Ada"})
	c.DismissLead()

	got := c.Snapshot()
	assert.Equal(t, OverlayNone, got.Overlay)
	assert.False(t, got.LeadSubmitted)
	assert.Equal(t, dto.LeadDraft{}, got.LeadDraft)

	require.NoError(t, c.SendMessage(ctx, "again"))
	assert.Equal(t, OverlayLeadForm, c.Snapshot().Overlay)
}

func TestSubmitLeadValidation(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, _ := newTestController(api)
	ctx := context.Background()

	assert.ErrorIs(t, c.SubmitLead(ctx), ErrNoForm)

	require.NoError(t, c.SendMessage(ctx, "hello"))
	c.UpdateLead(dto.LeadDraft{Name: "Ada", Email: "not-an-email"})
	assert.ErrorIs(t, c.SubmitLead(ctx), ErrInvalidLead)
	c.UpdateLead(dto.LeadDraft{Email: "ada@example.com"})
	assert.ErrorIs(t, c.SubmitLead(ctx), ErrInvalidLead)

	_, _, lead, _, _ := api.counts()
	assert.Zero(t, lead)
}

func TestSubmitLeadFailureKeepsForm(t *testing.T) {
	api := &fakeAPI{
		captureFn: func(context.Context, string, string) (bool, error) { return true, nil },
		leadFn:    func(context.Context, dto.LeadRequest) error { return errBackend },
	}
	c, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "hello"))
	draft := dto.LeadDraft{Name: "Ada", Email: "ada@example.com"}
	c.UpdateLead(draft)
	require.NoError(t, c.SubmitLead(ctx))

	got := c.Snapshot()
	assert.Equal(t, OverlayLeadForm, got.Overlay)
	assert.Equal(t, draft, got.LeadDraft)
	assert.False(t, got.LeadSubmitting)
	assert.False(t, got.LeadSubmitted)
	assert.Equal(t, MsgLeadFailed, got.Transcript[len(got.Transcript)-1].Content)

	api.leadFn = nil
	require.NoError(t, c.SubmitLead(ctx))
	assert.True(t, c.Snapshot().LeadSubmitted)
}

func TestSubmitLeadIsSingleFlight(t *testing.T) {
	g := newGate()
	api := &fakeAPI{
		captureFn: func(context.Context, string, string) (bool, error) { return true, nil },
		leadFn: func(context.Context, dto.LeadRequest) error {
			g.wait()
			return nil
		},
	}
	c, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "hello"))
	c.UpdateLead(dto.LeadDraft{Name: "Ada", Email: "ada@example.com"})

	done := make(chan error, 1)
	go func() { done <- c.SubmitLead(ctx) }()
	<-g.started

	assert.True(t, c.Snapshot().LeadSubmitting)
	assert.ErrorIs(t, c.SubmitLead(ctx), ErrBusy)

	close(g.release)
	require.NoError(t, <-done)

	_, _, lead, _, _ := api.counts()
	assert.Equal(t, 1, lead)
}

func TestResetChat(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, mem := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "hello"))
	before := c.Snapshot()
	require.Equal(t, OverlayLeadForm, before.Overlay)

	c.ResetChat(ctx)

	after := c.Snapshot()
	assert.Empty(t, after.Transcript)
	assert.NotEqual(t, before.SessionID, after.SessionID)
	assert.Equal(t, OverlayNone, after.Overlay)
	assert.False(t, after.LeadSubmitted)
	assert.False(t, after.Sending)

	stored, ok, err := mem.GetItem(ctx, session.StorageKey("w1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, after.SessionID, stored)

	_, _, _, _, suggest := api.counts()
	assert.Zero(t, suggest, "closed widget does not load suggestions")
}

func TestResetWhileOpenReloadsSuggestions(t *testing.T) {
	api := &fakeAPI{suggestFn: func(context.Context, string) ([]string, error) {
		return []string{"What do you sell?"}, nil
	}}
	c, _ := newTestController(api)
	ctx := context.Background()

	c.Open(ctx)
	c.ResetChat(ctx)

	_, _, _, _, suggest := api.counts()
	assert.Equal(t, 2, suggest)
	assert.Equal(t, []string{"What do you sell?"}, c.Snapshot().Suggestions)
}

func TestResetClearsDraft(t *testing.T) {
	api := &fakeAPI{suggestFn: func(context.Context, string) ([]string, error) {
		return []string{"What do you sell?"}, nil
	}}
	c, _ := newTestController(api)
	ctx := context.Background()

	c.Open(ctx)
	c.SetDraft("half a question")
	require.False(t, c.Snapshot().SuggestionsVisible())

	c.ResetChat(ctx)

	got := c.Snapshot()
	assert.Empty(t, got.Draft)
	assert.True(t, got.SuggestionsVisible())
}

func TestResetDropsInFlightReply(t *testing.T) {
	g := newGate()
	api := &fakeAPI{sendFn: func(context.Context, dto.ChatRequest) (dto.ChatResponse, error) {
		g.wait()
		return dto.ChatResponse{Response: "late"}, nil
	}}
	c, _ := newTestController(api)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(ctx, "hello") }()
	<-g.started

	c.ResetChat(ctx)
	assert.True(t, c.Snapshot().CanSend())

	close(g.release)
	require.NoError(t, <-done)

	got := c.Snapshot()
	assert.Empty(t, got.Transcript)
	assert.False(t, got.Sending)
}

func TestDetachDropsCompletions(t *testing.T) {
	g := newGate()
	api := &fakeAPI{sendFn: func(context.Context, dto.ChatRequest) (dto.ChatResponse, error) {
		g.wait()
		return dto.ChatResponse{Response: "late"}, nil
	}}
	c, _ := newTestController(api)
	ctx := context.Background()

	calls := 0
	c.Subscribe(func(State) { calls++ })

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(ctx, "hello") }()
	<-g.started

	c.Detach()
	close(g.release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, calls)
	assert.Equal(t, []Entry{{Role: RoleUser, Content: "hello", Status: StatusPending}}, c.Snapshot().Transcript)
	assert.ErrorIs(t, c.SendMessage(ctx, "again"), ErrClosed)
}

func TestSuggestions(t *testing.T) {
	api := &fakeAPI{suggestFn: func(context.Context, string) ([]string, error) {
		return []string{"What do you sell?", " ", "Where are you?"}, nil
	}}
	c, _ := newTestController(api)
	ctx := context.Background()

	c.Open(ctx)
	c.Open(ctx)

	got := c.Snapshot()
	assert.True(t, got.Open)
	assert.Equal(t, []string{"What do you sell?", "Where are you?"}, got.Suggestions)
	assert.True(t, got.SuggestionsVisible())

	c.SetDraft("typing")
	assert.False(t, c.Snapshot().SuggestionsVisible())
	c.SetDraft("")
	assert.True(t, c.Snapshot().SuggestionsVisible())

	require.NoError(t, c.SendMessage(ctx, "What do you sell?"))
	assert.False(t, c.Snapshot().SuggestionsVisible())

	_, _, _, _, suggest := api.counts()
	assert.Equal(t, 1, suggest)

	c.Close()
	c.Open(ctx)
	_, _, _, _, suggest = api.counts()
	assert.Equal(t, 2, suggest)
}

func TestSuggestionsFailureIsEmpty(t *testing.T) {
	api := &fakeAPI{suggestFn: func(context.Context, string) ([]string, error) {
		return nil, errBackend
	}}
	c, _ := newTestController(api)

	c.Open(context.Background())

	got := c.Snapshot()
	assert.Empty(t, got.Suggestions)
	assert.False(t, got.SuggestionsVisible())
	assert.Empty(t, got.Transcript)
}

func TestWelcomeIsNotInTranscript(t *testing.T) {
	c, _ := newTestController(&fakeAPI{})

	got := c.Snapshot()
	assert.Equal(t, "Hi! Ask me anything.", got.Welcome)
	assert.Empty(t, got.Transcript)
}

func TestEmailTranscript(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestController(api)
	ctx := context.Background()

	assert.ErrorIs(t, c.SubmitEmail(ctx, "ada@example.com"), ErrNoForm)

	c.ToggleEmailForm()
	require.Equal(t, OverlayEmailForm, c.Snapshot().Overlay)

	assert.ErrorIs(t, c.SubmitEmail(ctx, "nope"), ErrInvalidEmail)

	require.NoError(t, c.SubmitEmail(ctx, " ada@example.com "))

	got := c.Snapshot()
	assert.Equal(t, OverlayNone, got.Overlay)
	assert.Equal(t, []Entry{{Role: RoleAssistant, Content: "Conversation transcript sent to ada@example.com.", Status: StatusDelivered}}, got.Transcript)
	require.Len(t, api.emailCalls, 1)
	assert.Equal(t, dto.EmailConversationRequest{SessionID: got.SessionID, Email: "ada@example.com", WidgetID: "w1"}, api.emailCalls[0])
}

func TestEmailTranscriptFailureKeepsForm(t *testing.T) {
	api := &fakeAPI{emailFn: func(context.Context, dto.EmailConversationRequest) error { return errBackend }}
	c, _ := newTestController(api)

	c.ToggleEmailForm()
	require.NoError(t, c.SubmitEmail(context.Background(), "ada@example.com"))

	got := c.Snapshot()
	assert.Equal(t, OverlayEmailForm, got.Overlay)
	assert.False(t, got.EmailSending)
	assert.Equal(t, MsgEmailFailed, got.Transcript[0].Content)

	c.ToggleEmailForm()
	assert.Equal(t, OverlayNone, c.Snapshot().Overlay)
}

func TestLeadPromptWaitsForEmailForm(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, _ := newTestController(api)
	ctx := context.Background()

	c.ToggleEmailForm()
	require.NoError(t, c.SendMessage(ctx, "hello"))

	got := c.Snapshot()
	assert.Equal(t, OverlayEmailForm, got.Overlay)
	assert.True(t, got.LeadPending)

	require.NoError(t, c.SendMessage(ctx, "more"))
	_, capture, _, _, _ := api.counts()
	assert.Equal(t, 1, capture)

	c.ToggleEmailForm()
	got = c.Snapshot()
	assert.Equal(t, OverlayLeadForm, got.Overlay)
	assert.False(t, got.LeadPending)
}

func TestEmailFormParksLeadForm(t *testing.T) {
	api := &fakeAPI{captureFn: func(context.Context, string, string) (bool, error) { return true, nil }}
	c, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.SendMessage(ctx, "hello"))
	c.UpdateLead(dto.LeadDraft{Name: "Ada"})

	c.ToggleEmailForm()
	got := c.Snapshot()
	assert.Equal(t, OverlayEmailForm, got.Overlay)
	assert.True(t, got.LeadPending)

	require.NoError(t, c.SubmitEmail(ctx, "ada@example.com"))
	got = c.Snapshot()
	assert.Equal(t, OverlayLeadForm, got.Overlay)
	assert.Equal(t, "Ada", got.LeadDraft.Name)
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _ := newTestController(&fakeAPI{})
	require.NoError(t, c.SendMessage(context.Background(), "hello"))

	snap := c.Snapshot()
	snap.Transcript[0].Content = "changed"
	assert.Equal(t, "hello", c.Snapshot().Transcript[0].Content)
}

func TestSessionIsStableAcrossActions(t *testing.T) {
	c, _ := newTestController(&fakeAPI{})
	ctx := context.Background()

	c.Open(ctx)
	first := c.Snapshot().SessionID
	require.NotEmpty(t, first)

	require.NoError(t, c.SendMessage(ctx, "hello"))
	require.NoError(t, c.SendMessage(ctx, "again"))
	assert.Equal(t, first, c.Snapshot().SessionID)
}
