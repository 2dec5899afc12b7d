package dto

type ChatRequest struct {
	Message    string `json:"message"`
	SessionID  string `json:"session_id"`
	WidgetID   string `json:"widget_id,omitempty"`
	ShopDomain string `json:"shop_domain,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type ShouldCaptureResponse struct {
	ShouldCapture bool `json:"should_capture"`
}

type EmailConversationRequest struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	WidgetID  string `json:"widget_id,omitempty"`
}

type SuggestedQuestionsResponse struct {
	Questions []string `json:"questions"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
