package router

import (
	"net/http"

	"chat-widget/internal/api"
	"chat-widget/internal/api/endpoints"
	chatsvc "chat-widget/internal/service/chat"
	leadsvc "chat-widget/internal/service/lead"
)

// WidgetRoutes registers the unauthenticated calls made by embedded widgets.
func WidgetRoutes(prefix string, chat *chatsvc.Service, leads *leadsvc.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		widgetEndpoints := endpoints.NewWidgetEndpoints(chat)
		leadEndpoints := endpoints.NewLeadEndpoints(leads)

		mux.HandleFunc(prefix+"/chat", s.MakeHTTPHandleFunc(widgetEndpoints.Chat))
		mux.HandleFunc(prefix+"/chat/should-capture-lead/{session_id}", s.MakeHTTPHandleFunc(widgetEndpoints.ShouldCaptureLead))
		mux.HandleFunc(prefix+"/chat/email-conversation", s.MakeHTTPHandleFunc(widgetEndpoints.EmailConversation))
		mux.HandleFunc(prefix+"/chat/suggested-questions", s.MakeHTTPHandleFunc(widgetEndpoints.SuggestedQuestions))
		mux.HandleFunc(prefix+"/admin/leads", s.MakeHTTPHandleFunc(leadEndpoints.Create))
	}
}
