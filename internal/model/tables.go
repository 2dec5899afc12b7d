package model

const (
	LeadsTable = "Leads"

	LeadsBySessionIndex = "bySession"
	LeadsByWidgetIndex  = "byWidget"
)

// LeadItem is a captured visitor contact. ID is the hash key; the session and
// widget indexes carry sessionId and widgetId as their hash keys.
type LeadItem struct {
	LeadID    string `dynamodbav:"leadId"`
	SessionID string `dynamodbav:"sessionId"`
	WidgetID  string `dynamodbav:"widgetId,omitempty"`
	Name      string `dynamodbav:"name"`
	Email     string `dynamodbav:"email,omitempty"`
	Phone     string `dynamodbav:"phone,omitempty"`
	Company   string `dynamodbav:"company,omitempty"`
	CreatedAt string `dynamodbav:"createdAt"`
}
