package widget

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"chat-widget/internal/config"
	"chat-widget/internal/dto"

	"github.com/rs/zerolog"
)

const (
	MsgChatFailed  = "Sorry, something went wrong. Please try again."
	MsgLeadSaved   = "Thank you! We'll be in touch soon."
	MsgLeadFailed  = "Sorry, we couldn't save your details. Please try again."
	MsgEmailFailed = "Sorry, we couldn't email the transcript. Please try again."
)

// EmailSentMessage is the transcript line confirming a transcript email.
func EmailSentMessage(email string) string {
	return "Conversation transcript sent to " + email + "."
}

var (
	ErrEmptyMessage = errors.New("widget: message is empty")
	ErrBusy         = errors.New("widget: a request is already in flight")
	ErrClosed       = errors.New("widget: controller is detached")
	ErrNoForm       = errors.New("widget: form is not open")
	ErrInvalidLead  = errors.New("widget: lead needs a name and a valid email")
	ErrInvalidEmail = errors.New("widget: invalid email address")
)

// API is the backend surface the controller drives.
type API interface {
	SendMessage(ctx context.Context, req dto.ChatRequest) (dto.ChatResponse, error)
	ShouldCaptureLead(ctx context.Context, sessionID, widgetID string) (bool, error)
	SubmitLead(ctx context.Context, req dto.LeadRequest) error
	EmailConversation(ctx context.Context, req dto.EmailConversationRequest) error
	SuggestedQuestions(ctx context.Context, widgetID string) ([]string, error)
}

type SessionStore interface {
	GetOrCreateSessionID(ctx context.Context, widgetID string) string
	ResetSessionID(ctx context.Context, widgetID string) string
}

// Controller owns the conversation state of one widget instance. Actions
// may be called from any goroutine; network calls run without holding the
// lock, and completions that arrive after a reset or Detach are dropped.
type Controller struct {
	cfg      config.Widget
	api      API
	sessions SessionStore
	logger   zerolog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	suggSeq  uint64
	detached bool

	subs    map[int]func(State)
	nextSub int
}

func New(cfg config.Widget, api API, sessions SessionStore, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		api:      api,
		sessions: sessions,
		logger:   logger.With().Str("widget_id", cfg.ID).Logger(),
		state:    State{Welcome: cfg.WelcomeMessage},
		subs:     make(map[int]func(State)),
	}
}

func (c *Controller) Config() config.Widget {
	return c.cfg
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive a snapshot after every change. fn runs
// on the goroutine that made the change and must not block.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// changedLocked bumps the version and returns what to publish once the lock
// is released.
func (c *Controller) changedLocked() func() {
	c.state.Version++
	snap := c.state.clone()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(snap)
		}
	}
}

func (c *Controller) ensureSession(ctx context.Context) string {
	c.mu.Lock()
	id := c.state.SessionID
	c.mu.Unlock()
	if id != "" {
		return id
	}

	id = c.sessions.GetOrCreateSessionID(ctx, c.cfg.ID)

	c.mu.Lock()
	if c.state.SessionID == "" {
		c.state.SessionID = id
	}
	id = c.state.SessionID
	c.mu.Unlock()
	return id
}

// Open shows the widget. Suggestions load on every closed-to-open
// transition.
func (c *Controller) Open(ctx context.Context) {
	c.ensureSession(ctx)

	c.mu.Lock()
	if c.detached || c.state.Open {
		c.mu.Unlock()
		return
	}
	c.state.Open = true
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	c.LoadSuggestions(ctx)
}

func (c *Controller) Close() {
	c.mu.Lock()
	if c.detached || !c.state.Open {
		c.mu.Unlock()
		return
	}
	c.state.Open = false
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.detached || c.state.Draft == text {
		c.mu.Unlock()
		return
	}
	c.state.Draft = text
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

// SendMessage appends text as a pending user entry and asks the backend for
// a reply. Backend failures are reported in the transcript, not returned.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	c.ensureSession(ctx)

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.Sending = true
	c.state.Draft = ""
	c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleUser, Content: text, Status: StatusPending})
	idx := len(c.state.Transcript) - 1
	gen := c.gen
	sessionID := c.state.SessionID
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	resp, err := c.api.SendMessage(ctx, dto.ChatRequest{
		Message:    text,
		SessionID:  sessionID,
		WidgetID:   c.cfg.ID,
		ShopDomain: c.cfg.ShopDomain,
		CustomerID: c.cfg.CustomerID,
	})

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return nil
	}

	if err != nil {
		c.state.Transcript[idx].Status = StatusFailed
		c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleAssistant, Content: MsgChatFailed, Status: StatusDelivered})
		c.state.Sending = false
		publish = c.changedLocked()
		c.mu.Unlock()
		publish()

		c.logger.Warn().Err(err).Str("op", "send_message").Str("session_id", sessionID).Msg("chat send failed")
		return nil
	}

	c.state.Transcript[idx].Status = StatusDelivered
	c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleAssistant, Content: resp.Response, Status: StatusDelivered})

	checkLead := !c.state.LeadSubmitted && !c.state.LeadPending && c.state.Overlay != OverlayLeadForm
	if !checkLead {
		c.state.Sending = false
	}
	publish = c.changedLocked()
	c.mu.Unlock()
	publish()

	if checkLead {
		c.checkLeadCapture(ctx, gen, sessionID)
	}
	return nil
}

// checkLeadCapture finishes a successful send. Sending stays set until the
// backend has answered.
func (c *Controller) checkLeadCapture(ctx context.Context, gen uint64, sessionID string) {
	capture, err := c.api.ShouldCaptureLead(ctx, sessionID, c.cfg.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", "should_capture_lead").Str("session_id", sessionID).Msg("lead capture check failed")
		capture = false
	}

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return
	}
	c.state.Sending = false
	if capture && !c.state.LeadSubmitted {
		switch c.state.Overlay {
		case OverlayNone:
			c.openLeadFormLocked()
		case OverlayEmailForm:
			c.state.LeadPending = true
		}
	}
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

func (c *Controller) openLeadFormLocked() {
	c.state.Overlay = OverlayLeadForm
	c.state.LeadPending = false
}

func (c *Controller) staleLocked(gen uint64) bool {
	return c.detached || gen != c.gen
}

// ResetChat starts a new conversation under a fresh session identifier.
func (c *Controller) ResetChat(ctx context.Context) {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	sessionID := c.sessions.ResetSessionID(ctx, c.cfg.ID)

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.state.SessionID = sessionID
	c.state.Transcript = nil
	c.state.Draft = ""
	c.state.Suggestions = nil
	c.state.Overlay = OverlayNone
	c.state.LeadDraft = dto.LeadDraft{}
	c.state.LeadSubmitted = false
	c.state.LeadPending = false
	c.state.Sending = false
	c.state.LeadSubmitting = false
	c.state.EmailSending = false
	open := c.state.Open
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	c.logger.Debug().Str("session_id", sessionID).Msg("conversation reset")

	if open {
		c.LoadSuggestions(ctx)
	}
}

// LoadSuggestions fetches opening questions. Failures leave the list empty.
func (c *Controller) LoadSuggestions(ctx context.Context) {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.suggSeq++
	seq := c.suggSeq
	c.mu.Unlock()

	questions, err := c.api.SuggestedQuestions(ctx, c.cfg.ID)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", "suggested_questions").Msg("suggestions unavailable")
		questions = nil
	}

	c.mu.Lock()
	if c.staleLocked(gen) || seq != c.suggSeq {
		c.mu.Unlock()
		return
	}
	c.state.Suggestions = nonEmpty(questions)
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Controller) UpdateLead(d dto.LeadDraft) {
	c.mu.Lock()
	if c.detached || c.state.Overlay != OverlayLeadForm {
		c.mu.Unlock()
		return
	}
	c.state.LeadDraft = d
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

// SubmitLead sends the lead form. Only one submission runs at a time; a
// failed submission keeps the form open with its contents.
func (c *Controller) SubmitLead(ctx context.Context) error {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Overlay != OverlayLeadForm {
		c.mu.Unlock()
		return ErrNoForm
	}
	if c.state.LeadSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	d := trimLead(c.state.LeadDraft)
	if d.Name == "" || !validEmail(d.Email) {
		c.mu.Unlock()
		return ErrInvalidLead
	}
	c.state.LeadSubmitting = true
	gen := c.gen
	sessionID := c.state.SessionID
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	err := c.api.SubmitLead(ctx, dto.LeadRequest{
		SessionID: sessionID,
		WidgetID:  c.cfg.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Company:   d.Company,
	})

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return nil
	}
	c.state.LeadSubmitting = false
	if err != nil {
		c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleAssistant, Content: MsgLeadFailed, Status: StatusDelivered})
	} else {
		c.state.LeadSubmitted = true
		c.state.LeadPending = false
		c.state.LeadDraft = dto.LeadDraft{}
		if c.state.Overlay == OverlayLeadForm {
			c.state.Overlay = OverlayNone
		}
		c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleAssistant, Content: MsgLeadSaved, Status: StatusDelivered})
	}
	publish = c.changedLocked()
	c.mu.Unlock()
	publish()

	if err != nil {
		c.logger.Warn().Err(err).Str("op", "submit_lead").Str("session_id", sessionID).Msg("lead submit failed")
	}
	return nil
}

// DismissLead closes the lead form without submitting. A later reply may
// prompt again.
func (c *Controller) DismissLead() {
	c.mu.Lock()
	if c.detached || c.state.Overlay != OverlayLeadForm || c.state.LeadSubmitting {
		c.mu.Unlock()
		return
	}
	c.state.Overlay = OverlayNone
	c.state.LeadDraft = dto.LeadDraft{}
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

// ToggleEmailForm opens or closes the email form. Opening it over the lead
// form parks the lead form, which comes back when the email form closes.
func (c *Controller) ToggleEmailForm() {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}

	switch c.state.Overlay {
	case OverlayEmailForm:
		if c.state.EmailSending {
			c.mu.Unlock()
			return
		}
		c.closeEmailFormLocked()
	case OverlayLeadForm:
		if c.state.LeadSubmitting {
			c.mu.Unlock()
			return
		}
		c.state.LeadPending = true
		c.state.Overlay = OverlayEmailForm
	default:
		c.state.Overlay = OverlayEmailForm
	}

	publish := c.changedLocked()
	c.mu.Unlock()
	publish()
}

func (c *Controller) closeEmailFormLocked() {
	c.state.Overlay = OverlayNone
	if c.state.LeadPending && !c.state.LeadSubmitted {
		c.openLeadFormLocked()
	}
	c.state.LeadPending = false
}

// SubmitEmail asks the backend to email the transcript to email.
func (c *Controller) SubmitEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	c.ensureSession(ctx)

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.Overlay != OverlayEmailForm {
		c.mu.Unlock()
		return ErrNoForm
	}
	if c.state.EmailSending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.EmailSending = true
	gen := c.gen
	sessionID := c.state.SessionID
	publish := c.changedLocked()
	c.mu.Unlock()
	publish()

	err := c.api.EmailConversation(ctx, dto.EmailConversationRequest{
		SessionID: sessionID,
		Email:     email,
		WidgetID:  c.cfg.ID,
	})

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return nil
	}
	c.state.EmailSending = false
	if err != nil {
		c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleAssistant, Content: MsgEmailFailed, Status: StatusDelivered})
	} else {
		c.state.Transcript = append(c.state.Transcript, Entry{Role: RoleAssistant, Content: EmailSentMessage(email), Status: StatusDelivered})
		if c.state.Overlay == OverlayEmailForm {
			c.closeEmailFormLocked()
		}
	}
	publish = c.changedLocked()
	c.mu.Unlock()
	publish()

	if err != nil {
		c.logger.Warn().Err(err).Str("op", "email_conversation").Str("session_id", sessionID).Msg("transcript email failed")
	}
	return nil
}

// Detach disconnects the controller from its host. Pending completions are
// discarded and later actions are no-ops.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detached = true
	c.subs = make(map[int]func(State))
}

func trimLead(d dto.LeadDraft) dto.LeadDraft {
	return dto.LeadDraft{
		Name:    strings.TrimSpace(d.Name),
		Email:   strings.TrimSpace(d.Email),
		Phone:   strings.TrimSpace(d.Phone),
		Company: strings.TrimSpace(d.Company),
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
