package router

import (
	"net/http"

	"chat-widget/internal/api"
	"chat-widget/internal/api/endpoints"
	"chat-widget/internal/api/middleware"
	internaljwt "chat-widget/internal/jwt"
	authsvc "chat-widget/internal/service/auth"
	leadsvc "chat-widget/internal/service/lead"
)

// AuthRoutes registers console login and the token-protected lead listing.
// GET on the leads path is more specific than the widget's POST route, so
// the two share a path.
func AuthRoutes(prefix string, auth *authsvc.Service, leads *leadsvc.Service, issuer *internaljwt.Issuer) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(auth)
		leadEndpoints := endpoints.NewLeadEndpoints(leads)

		mux.HandleFunc(prefix+"/auth/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc("GET "+prefix+"/admin/leads", s.MakeHTTPHandleFunc(leadEndpoints.List, middleware.RequireJWT(issuer)))
	}
}
