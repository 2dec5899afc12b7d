package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chat-widget/internal/dto"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const maxErrorBody = 4 << 10

const (
	OpSendMessage        = "send_message"
	OpShouldCaptureLead  = "should_capture_lead"
	OpSubmitLead         = "submit_lead"
	OpEmailConversation  = "email_conversation"
	OpSuggestedQuestions = "suggested_questions"
	OpLogin              = "login"
	OpListLeads          = "list_leads"
)

// Client talks to the widget endpoints of the chat backend. Requests carry no
// credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	registerer prometheus.Registerer
	logger     zerolog.Logger
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTimeout bounds every request. Zero, the default, leaves it unbounded.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithRegisterer enables request metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *clientOptions) {
		o.registerer = reg
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = l
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	o := &clientOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	hc := &http.Client{}
	if o.httpClient != nil {
		cp := *o.httpClient
		hc = &cp
	}
	if o.timeout > 0 {
		hc.Timeout = o.timeout
	}
	if o.registerer != nil {
		next := hc.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		hc.Transport = &instrumentedTransport{next: next, metrics: newMetrics(o.registerer)}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: hc,
		logger:     o.logger,
	}, nil
}

func (c *Client) SendMessage(ctx context.Context, req dto.ChatRequest) (dto.ChatResponse, error) {
	var out struct {
		Response  *string `json:"response"`
		SessionID string  `json:"session_id"`
	}
	if err := c.do(ctx, OpSendMessage, http.MethodPost, "/api/chat", nil, req, &out); err != nil {
		return dto.ChatResponse{}, err
	}
	if out.Response == nil {
		return dto.ChatResponse{}, fmt.Errorf("%s: %w: missing response", OpSendMessage, ErrDecode)
	}
	return dto.ChatResponse{Response: *out.Response, SessionID: out.SessionID}, nil
}

func (c *Client) ShouldCaptureLead(ctx context.Context, sessionID, widgetID string) (bool, error) {
	var out struct {
		ShouldCapture *bool `json:"should_capture"`
	}
	path := "/api/chat/should-capture-lead/" + url.PathEscape(sessionID)
	if err := c.do(ctx, OpShouldCaptureLead, http.MethodGet, path, widgetQuery(widgetID), nil, &out); err != nil {
		return false, err
	}
	if out.ShouldCapture == nil {
		return false, fmt.Errorf("%s: %w: missing should_capture", OpShouldCaptureLead, ErrDecode)
	}
	return *out.ShouldCapture, nil
}

// SubmitLead posts a lead. The response body is ignored.
func (c *Client) SubmitLead(ctx context.Context, req dto.LeadRequest) error {
	return c.do(ctx, OpSubmitLead, http.MethodPost, "/api/admin/leads", nil, req, nil)
}

func (c *Client) EmailConversation(ctx context.Context, req dto.EmailConversationRequest) error {
	return c.do(ctx, OpEmailConversation, http.MethodPost, "/api/chat/email-conversation", nil, req, nil)
}

func (c *Client) SuggestedQuestions(ctx context.Context, widgetID string) ([]string, error) {
	var out dto.SuggestedQuestionsResponse
	if err := c.do(ctx, OpSuggestedQuestions, http.MethodGet, "/api/chat/suggested-questions", widgetQuery(widgetID), nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

func widgetQuery(widgetID string) url.Values {
	q := url.Values{}
	q.Set("widget_id", widgetID)
	return q
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(withOp(ctx, op), method, target, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDecode, err)
	}
	return nil
}
