package handler

import (
	"net/http"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes : все, что нужно для регистрации маршрутов сервера
type Routes struct {
	OAuth        *OAuthHandler
	Resource     *ResourceHandler
	Codec        ports.TokenCodec
	RateLimiter  *security.IPRateLimiter
	RequireHTTPS bool
	Swagger      http.Handler
}

func SetupRoutes(r chi.Router, routes Routes) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", routes.Resource.Health)
	if routes.Swagger != nil {
		r.Get("/swagger/*", routes.Swagger.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		if routes.RequireHTTPS {
			r.Use(security.RequireHTTPS)
		}

		setupOAuthRoutes(r, routes.OAuth, routes.RateLimiter)
		setupResourceRoutes(r, routes.Resource, routes.Codec)
	})
}

func setupOAuthRoutes(r chi.Router, h *OAuthHandler, limiter *security.IPRateLimiter) {
	r.Route("/oauth", func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Get("/authorize", h.Authorize)
		r.Post("/token", h.Token)
		r.Post("/revoke", h.Revoke)
	})
}

func setupResourceRoutes(r chi.Router, h *ResourceHandler, codec ports.TokenCodec) {
	r.Route("/api", func(r chi.Router) {
		r.Use(security.BearerMiddleware(codec))
		r.Get("/me", h.Me)
	})
}
