package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"chat-widget/internal/dto"
	"chat-widget/internal/model"
	leadsvc "chat-widget/internal/service/lead"
)

type LeadEndpoints interface {
	Create(http.ResponseWriter, *http.Request) error
	List(http.ResponseWriter, *http.Request) error
}

type leadEndpoints struct {
	service *leadsvc.Service
}

func NewLeadEndpoints(service *leadsvc.Service) LeadEndpoints {
	return &leadEndpoints{
		service: service,
	}
}

func (h *leadEndpoints) Create(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreate,
	})
}

func (h *leadEndpoints) List(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleList,
	})
}

func (h *leadEndpoints) handleCreate(w http.ResponseWriter, r *http.Request) error {
	var req dto.LeadRequest
	if err := decodeJSON(w, r, &req, "lead"); err != nil {
		return err
	}

	lead, err := h.service.Create(r.Context(), leadsvc.CreateParams{
		SessionID: req.SessionID,
		WidgetID:  req.WidgetID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
	})
	if err != nil {
		return mapLeadServiceError(err)
	}

	return WriteJSON(w, http.StatusCreated, toLeadResponse(lead))
}

func (h *leadEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	leads, err := h.service.List(r.Context(), r.URL.Query().Get("widget_id"))
	if err != nil {
		return mapLeadServiceError(err)
	}

	resp := dto.LeadListResponse{Leads: make([]dto.LeadResponse, 0, len(leads))}
	for _, l := range leads {
		resp.Leads = append(resp.Leads, toLeadResponse(l))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func toLeadResponse(lead model.LeadItem) dto.LeadResponse {
	return dto.LeadResponse{
		ID:        lead.LeadID,
		SessionID: lead.SessionID,
		WidgetID:  lead.WidgetID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		CreatedAt: lead.CreatedAt,
	}
}

func mapLeadServiceError(err error) error {
	var svcErr *leadsvc.Error
	if !errors.As(err, &svcErr) {
		return internalError("lead service", err)
	}

	errorLog := error(svcErr)
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	}
	return serviceHTTPError(string(svcErr.Code), svcErr.Message, errorLog)
}
