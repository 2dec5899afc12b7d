package chat

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultCaptureAfter = 3
	defaultMaxSessions  = 1000
	defaultMaxMessages  = 200
)

type session struct {
	messages     []Message
	userMessages int
	lastSeen     time.Time
}

// Service is a deterministic stand-in for the conversational backend. It
// keeps transcripts in memory and answers every question with a canned reply.
// Memory is bounded: the least recently active session is evicted once
// maxSessions is reached and each transcript keeps its last maxMessages entries.
type Service struct {
	leads        LeadChecker
	captureAfter int
	suggestions  []string
	logger       zerolog.Logger
	now          func() time.Time
	maxSessions  int
	maxMessages  int

	mu         sync.Mutex
	sessions   map[string]*session
	deliveries []Delivery
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithLimits bounds the sessions kept and the transcript entries per session.
// Non-positive values keep the defaults.
func WithLimits(maxSessions, maxMessages int) Option {
	return func(s *Service) {
		if maxSessions > 0 {
			s.maxSessions = maxSessions
		}
		if maxMessages > 0 {
			s.maxMessages = maxMessages
		}
	}
}

// New builds the service. captureAfter is the number of visitor messages
// after which a session without a lead should be asked for one.
func New(leads LeadChecker, captureAfter int, suggestions []string, opts ...Option) *Service {
	if captureAfter <= 0 {
		captureAfter = defaultCaptureAfter
	}
	s := &Service{
		leads:        leads,
		captureAfter: captureAfter,
		suggestions:  append([]string(nil), suggestions...),
		logger:       zerolog.Nop(),
		now:          time.Now,
		maxSessions:  defaultMaxSessions,
		maxMessages:  defaultMaxMessages,
		sessions:     make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Reply(ctx context.Context, params MessageParams) (string, error) {
	sessionID := strings.TrimSpace(params.SessionID)
	text := strings.TrimSpace(params.Message)
	if sessionID == "" {
		return "", newError(ErrorCodeValidation, "session_id is required", nil)
	}
	if text == "" {
		return "", newError(ErrorCodeValidation, "message is required", nil)
	}

	reply := cannedReply(text, params.ShopDomain)
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		if len(s.sessions) >= s.maxSessions {
			s.evictOldestLocked()
		}
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.messages = append(sess.messages,
		Message{Role: RoleUser, Content: text, SentAt: now},
		Message{Role: RoleAssistant, Content: reply, SentAt: now},
	)
	if over := len(sess.messages) - s.maxMessages; over > 0 {
		sess.messages = append([]Message(nil), sess.messages[over:]...)
	}
	sess.userMessages++
	sess.lastSeen = now
	s.mu.Unlock()

	s.logger.Debug().
		Str("session_id", sessionID).
		Str("widget_id", params.WidgetID).
		Str("customer_id", params.CustomerID).
		Msg("chat message")
	return reply, nil
}

func (s *Service) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	delete(s.sessions, oldestID)
	s.logger.Debug().Str("session_id", oldestID).Msg("session evicted")
}

func cannedReply(question, shop string) string {
	var b strings.Builder
	b.WriteString("Thanks for your question! You asked: **")
	b.WriteString(question)
	b.WriteString("**")
	if shop != "" {
		b.WriteString(fmt.Sprintf("\n\nI'm answering on behalf of _%s_.", shop))
	}
	b.WriteString("\n\nThis is a development backend, so the answer is always the same.")
	return b.String()
}

// ShouldCaptureLead is true once the session has enough visitor messages
// and no lead on file. Unknown sessions are never prompted.
func (s *Service) ShouldCaptureLead(ctx context.Context, sessionID, widgetID string) (bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	count := 0
	if ok {
		count = sess.userMessages
	}
	s.mu.Unlock()

	if count < s.captureAfter {
		return false, nil
	}
	if s.leads == nil {
		return true, nil
	}
	has, err := s.leads.HasLead(ctx, sessionID)
	if err != nil {
		return false, newError(ErrorCodeInternal, "failed to look up lead", err)
	}
	return !has, nil
}

func (s *Service) SuggestedQuestions(widgetID string) []string {
	return append([]string{}, s.suggestions...)
}

// EmailConversation records the session transcript as sent to email.
func (s *Service) EmailConversation(ctx context.Context, sessionID, email string) error {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return newError(ErrorCodeValidation, "a valid email is required", err)
	}

	s.mu.Lock()
	sess, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		s.mu.Unlock()
		return newError(ErrorCodeNotFound, "conversation not found", nil)
	}
	d := Delivery{
		SessionID: sessionID,
		Email:     email,
		Body:      renderTranscript(sess.messages),
		SentAt:    s.now(),
	}
	s.deliveries = append(s.deliveries, d)
	if over := len(s.deliveries) - s.maxSessions; over > 0 {
		s.deliveries = append([]Delivery(nil), s.deliveries[over:]...)
	}
	s.mu.Unlock()

	s.logger.Info().Str("session_id", sessionID).Str("email", email).Int("bytes", len(d.Body)).Msg("transcript emailed")
	return nil
}

func renderTranscript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		who := "You"
		if m.Role == RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.SentAt.UTC().Format(time.RFC3339), who, m.Content)
	}
	return b.String()
}

func (s *Service) Transcript(sessionID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	return append([]Message(nil), sess.messages...)
}

func (s *Service) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Delivery(nil), s.deliveries...)
}
