package dto

// LeadDraft is what the visitor has typed into the lead form so far.
type LeadDraft struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
}

type LeadRequest struct {
	SessionID string `json:"session_id"`
	WidgetID  string `json:"widget_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

type LeadResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	WidgetID  string `json:"widget_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
	CreatedAt string `json:"created_at"`
}

type LeadListResponse struct {
	Leads []LeadResponse `json:"leads"`
}
