// Package api exposes the catalog, sign-in and moderation flows over HTTP.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"stealthcompany.com/archaeoseeker/internal/admin"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/loginlimit"
	"stealthcompany.com/archaeoseeker/internal/metrics"
)

// maxPageSize caps the pageSize query parameter
const maxPageSize = 100

// Server holds the dependencies of the HTTP handlers
type Server struct {
	catalog   *catalog.Service
	dashboard *admin.Dashboard
	auth      *auth.Service
	limiter   *loginlimit.Limiter
	proxies   loginlimit.TrustedProxies
	pageSize  int
	backend   string
}

// NewServer creates the HTTP layer. limiter is scoped per client on each
// sign-in; backend names the store in health responses.
func NewServer(cat *catalog.Service, dashboard *admin.Dashboard, authSvc *auth.Service, limiter *loginlimit.Limiter, pageSize int, backend string) *Server {
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &Server{
		catalog:   cat,
		dashboard: dashboard,
		auth:      authSvc,
		limiter:   limiter,
		pageSize:  pageSize,
		backend:   backend,
	}
}

// WithTrustedProxies makes sign-in believe X-Forwarded-For from these proxies
func (s *Server) WithTrustedProxies(proxies loginlimit.TrustedProxies) *Server {
	s.proxies = proxies
	return s
}

// SetupRoutes configures and returns the HTTP router
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add metrics middleware to all routes
	r.Use(metrics.MetricsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")

	// Public catalog
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", s.ListItemsHandler).Methods("GET")
	api.HandleFunc("/items/{id}", s.GetItemHandler).Methods("GET")
	api.HandleFunc("/items/{id}/related", s.RelatedItemsHandler).Methods("GET")
	api.HandleFunc("/museums", s.MuseumsHandler).Methods("GET")
	api.HandleFunc("/education", s.EducationHandler).Methods("GET")
	api.HandleFunc("/options", s.OptionsHandler).Methods("GET")
	api.HandleFunc("/requests", s.SubmitRequestHandler).Methods("POST")

	// Sign-in
	api.HandleFunc("/auth/login", s.LoginHandler).Methods("POST")
	api.HandleFunc("/auth/events", s.AuthEventsHandler).Methods("GET")
	// logout with an expired session still succeeds, so it skips the middleware
	api.HandleFunc("/auth/logout", s.LogoutHandler).Methods("POST")
	session := api.PathPrefix("/auth").Subrouter()
	session.Use(auth.Middleware(s.auth))
	session.HandleFunc("/me", s.MeHandler).Methods("GET")

	// Moderation
	adm := api.PathPrefix("/admin").Subrouter()
	adm.Use(auth.Middleware(s.auth))
	adm.HandleFunc("/items", s.AdminItemsHandler).Methods("GET")
	adm.HandleFunc("/items", s.CreateItemHandler).Methods("POST")
	adm.HandleFunc("/items/{id}", s.UpdateItemHandler).Methods("PUT")
	adm.HandleFunc("/items/{id}", s.DeleteItemHandler).Methods("DELETE")
	adm.HandleFunc("/items/{id}/toggle", s.ToggleItemHandler).Methods("POST")
	adm.HandleFunc("/museums", s.AdminMuseumsHandler).Methods("GET")
	adm.HandleFunc("/requests", s.AdminRequestsHandler).Methods("GET")
	adm.HandleFunc("/requests/{id}/approve", s.ApproveRequestHandler).Methods("POST")
	adm.HandleFunc("/requests/{id}", s.DenyRequestHandler).Methods("DELETE")

	return r
}
