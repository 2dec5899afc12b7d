package chatapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"chat-widget/internal/dto"
	"chat-widget/internal/storage"

	"github.com/golang-jwt/jwt"
)

// TokenKey is the storage key holding the admin bearer token.
const TokenKey = "access_token"

// TokenTransport attaches the stored bearer token to outgoing requests.
// Missing or expired tokens are not sent.
type TokenTransport struct {
	Base    http.RoundTripper
	Storage storage.Storage
	Now     func() time.Time
}

func (t *TokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	if t.Storage != nil {
		token, ok, err := t.Storage.GetItem(req.Context(), TokenKey)
		if err == nil && ok && token != "" && !tokenExpired(token, now()) {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return base.RoundTrip(req)
}

// tokenExpired reads exp without verifying the signature; the server does
// that. Unparseable tokens count as expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return now.Unix() >= int64(exp)
}

// AdminClient is the authenticated console surface of the backend.
type AdminClient struct {
	client  *Client
	storage storage.Storage
}

func NewAdmin(baseURL string, st storage.Storage, opts ...Option) (*AdminClient, error) {
	c, err := New(baseURL, opts...)
	if err != nil {
		return nil, err
	}

	hc := *c.httpClient
	hc.Transport = &TokenTransport{Base: hc.Transport, Storage: st}
	c.httpClient = &hc

	return &AdminClient{client: c, storage: st}, nil
}

// Login exchanges credentials for a token and stores it for later calls.
func (a *AdminClient) Login(ctx context.Context, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := a.client.do(ctx, OpLogin, http.MethodPost, "/api/auth/login", nil, req, &out); err != nil {
		return dto.AuthResponse{}, err
	}
	if out.AccessToken == "" {
		return dto.AuthResponse{}, fmt.Errorf("%s: %w: missing access_token", OpLogin, ErrDecode)
	}
	if err := a.storage.SetItem(ctx, TokenKey, out.AccessToken); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("store token: %w", err)
	}
	return out, nil
}

func (a *AdminClient) Logout(ctx context.Context) error {
	return a.storage.RemoveItem(ctx, TokenKey)
}

func (a *AdminClient) ListLeads(ctx context.Context, widgetID string) ([]dto.LeadResponse, error) {
	var out dto.LeadListResponse
	var query url.Values
	if widgetID != "" {
		query = widgetQuery(widgetID)
	}
	if err := a.client.do(ctx, OpListLeads, http.MethodGet, "/api/admin/leads", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Leads, nil
}
