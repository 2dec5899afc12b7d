package widget

import (
	"chat-widget/internal/dto"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks an entry through delivery. Only user entries are ever
// pending or failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

type Entry struct {
	Role    Role
	Content string
	Status  Status
}

// Overlay is the form covering the transcript, if any. At most one is
// active at a time.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayLeadForm
	OverlayEmailForm
)

func (o Overlay) String() string {
	switch o {
	case OverlayLeadForm:
		return "lead_form"
	case OverlayEmailForm:
		return "email_form"
	default:
		return "none"
	}
}

// State is a point-in-time copy of everything a host renders. Version grows
// with every change so hosts can discard stale snapshots.
type State struct {
	Version   uint64
	Open      bool
	SessionID string
	Welcome   string

	Transcript  []Entry
	Draft       string
	Suggestions []string

	Overlay   Overlay
	LeadDraft dto.LeadDraft

	Sending        bool
	LeadSubmitting bool
	EmailSending   bool

	// LeadSubmitted stops further lead prompts until the chat is reset.
	LeadSubmitted bool
	// LeadPending is a lead prompt waiting for the email form to close.
	LeadPending bool
}

// SuggestionsVisible reports whether opening questions should be offered.
func (s State) SuggestionsVisible() bool {
	if len(s.Suggestions) == 0 || s.Draft != "" {
		return false
	}
	for _, e := range s.Transcript {
		if e.Role == RoleUser {
			return false
		}
	}
	return true
}

// CanSend reports whether a new message would be accepted.
func (s State) CanSend() bool {
	return !s.Sending
}

func (s State) clone() State {
	out := s
	out.Transcript = append([]Entry(nil), s.Transcript...)
	out.Suggestions = append([]string(nil), s.Suggestions...)
	return out
}
