package chat

import (
	"context"
	"time"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// LeadChecker tells whether a session already left its contact details.
type LeadChecker interface {
	HasLead(ctx context.Context, sessionID string) (bool, error)
}

type MessageParams struct {
	SessionID  string
	WidgetID   string
	Message    string
	ShopDomain string
	CustomerID string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
	SentAt  time.Time
}

// Delivery is a transcript that would have been emailed.
type Delivery struct {
	SessionID string
	Email     string
	Body      string
	SentAt    time.Time
}
