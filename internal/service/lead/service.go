package lead

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"chat-widget/internal/model"

	"github.com/google/uuid"
)

// createdAtLayout has fixed-width fractions so timestamps sort as strings.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo: repo,
		now:  now,
	}
}

// Create stores a lead. A name and at least one of email or phone are
// required; an email, when present, must parse.
func (s *Service) Create(ctx context.Context, params CreateParams) (model.LeadItem, error) {
	sessionID := strings.TrimSpace(params.SessionID)
	name := strings.TrimSpace(params.Name)
	email := strings.ToLower(strings.TrimSpace(params.Email))
	phone := strings.TrimSpace(params.Phone)

	if sessionID == "" {
		return model.LeadItem{}, newError(ErrorCodeValidation, "session_id is required", nil)
	}
	if name == "" {
		return model.LeadItem{}, newError(ErrorCodeValidation, "name is required", nil)
	}
	if email == "" && phone == "" {
		return model.LeadItem{}, newError(ErrorCodeValidation, "email or phone is required", nil)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return model.LeadItem{}, newError(ErrorCodeValidation, "email is invalid", err)
		}
	}

	lead := model.LeadItem{
		LeadID:    uuid.NewString(),
		SessionID: sessionID,
		WidgetID:  strings.TrimSpace(params.WidgetID),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Company:   strings.TrimSpace(params.Company),
		CreatedAt: s.now().UTC().Format(createdAtLayout),
	}

	if err := s.repo.CreateLead(ctx, lead); err != nil {
		return model.LeadItem{}, newError(ErrorCodeInternal, "failed to save lead", err)
	}
	return lead, nil
}

func (s *Service) List(ctx context.Context, widgetID string) ([]model.LeadItem, error) {
	leads, err := s.repo.ListLeads(ctx, strings.TrimSpace(widgetID))
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list leads", err)
	}
	return leads, nil
}

// HasLead reports whether the session already left its details.
func (s *Service) HasLead(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.repo.HasLeadForSession(ctx, sessionID)
	if err != nil {
		return false, newError(ErrorCodeInternal, "failed to look up lead", err)
	}
	return ok, nil
}
