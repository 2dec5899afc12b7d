package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"chat-widget/internal/dto"
	chatsvc "chat-widget/internal/service/chat"
)

// WidgetEndpoints serves the unauthenticated calls a widget makes.
type WidgetEndpoints interface {
	Chat(http.ResponseWriter, *http.Request) error
	ShouldCaptureLead(http.ResponseWriter, *http.Request) error
	EmailConversation(http.ResponseWriter, *http.Request) error
	SuggestedQuestions(http.ResponseWriter, *http.Request) error
}

type widgetEndpoints struct {
	service *chatsvc.Service
}

func NewWidgetEndpoints(service *chatsvc.Service) WidgetEndpoints {
	return &widgetEndpoints{
		service: service,
	}
}

func (h *widgetEndpoints) Chat(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleChat,
	})
}

func (h *widgetEndpoints) ShouldCaptureLead(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleShouldCaptureLead,
	})
}

func (h *widgetEndpoints) EmailConversation(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleEmailConversation,
	})
}

func (h *widgetEndpoints) SuggestedQuestions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleSuggestedQuestions,
	})
}

func (h *widgetEndpoints) handleChat(w http.ResponseWriter, r *http.Request) error {
	var req dto.ChatRequest
	if err := decodeJSON(w, r, &req, "chat"); err != nil {
		return err
	}

	reply, err := h.service.Reply(r.Context(), chatsvc.MessageParams{
		SessionID:  req.SessionID,
		WidgetID:   req.WidgetID,
		Message:    req.Message,
		ShopDomain: req.ShopDomain,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return mapChatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ChatResponse{
		Response:  reply,
		SessionID: req.SessionID,
	})
}

func (h *widgetEndpoints) handleShouldCaptureLead(w http.ResponseWriter, r *http.Request) error {
	sessionID := r.PathValue("session_id")
	widgetID := r.URL.Query().Get("widget_id")

	capture, err := h.service.ShouldCaptureLead(r.Context(), sessionID, widgetID)
	if err != nil {
		return mapChatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ShouldCaptureResponse{ShouldCapture: capture})
}

func (h *widgetEndpoints) handleEmailConversation(w http.ResponseWriter, r *http.Request) error {
	var req dto.EmailConversationRequest
	if err := decodeJSON(w, r, &req, "email conversation"); err != nil {
		return err
	}

	if err := h.service.EmailConversation(r.Context(), req.SessionID, req.Email); err != nil {
		return mapChatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.StatusResponse{Status: "sent"})
}

func (h *widgetEndpoints) handleSuggestedQuestions(w http.ResponseWriter, r *http.Request) error {
	questions := h.service.SuggestedQuestions(r.URL.Query().Get("widget_id"))
	return WriteJSON(w, http.StatusOK, dto.SuggestedQuestionsResponse{Questions: questions})
}

func mapChatServiceError(err error) error {
	var svcErr *chatsvc.Error
	if !errors.As(err, &svcErr) {
		return internalError("chat service", err)
	}

	errorLog := error(svcErr)
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	}
	return serviceHTTPError(string(svcErr.Code), svcErr.Message, errorLog)
}
