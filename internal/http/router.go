// Package http assembles the public HTTP surface: routes, auth and the
// middleware stack.
package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/auth"
	"github.com/pawsen/library-org/internal/catalog"
	"github.com/pawsen/library-org/internal/config"
	"github.com/pawsen/library-org/internal/health"
	"github.com/pawsen/library-org/internal/httpx"
	"github.com/pawsen/library-org/internal/metrics"
)

type Deps struct {
	Catalog  *catalog.HTTPHandler
	Auth     *auth.HTTPHandler
	Verifier httpx.TokenVerifier
	Health   *health.Checker
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Server   config.ServerConfig
}

// Router is the root handler. Close stops the login rate limiter's sweeper.
type Router struct {
	handler      http.Handler
	loginLimiter *httpx.RateLimitMiddleware
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

func (rt *Router) Close() {
	rt.loginLimiter.Stop()
}

func NewRouter(d Deps) *Router {
	loginLimiter := httpx.NewRateLimitMiddleware(d.Server.LoginRPS, d.Server.LoginBurst)
	protected := httpx.AuthMiddleware(d.Verifier)
	authed := func(h http.HandlerFunc) http.Handler { return protected(h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", d.Health.Liveness)
	mux.HandleFunc("GET /readyz", d.Health.Readiness)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	mux.Handle("POST /v1/auth/login", loginLimiter.Middleware(http.HandlerFunc(d.Auth.Login)))
	mux.HandleFunc("POST /v1/auth/logout", d.Auth.Logout)
	mux.Handle("GET /v1/auth/me", authed(d.Auth.Me))

	c := d.Catalog
	mux.HandleFunc("GET /v1/books", c.ListBooks)
	mux.HandleFunc("GET /v1/books/{id}", c.GetBook)
	mux.Handle("POST /v1/books", authed(c.AddBook))
	mux.Handle("PUT /v1/books/{id}", authed(c.EditBook))
	mux.Handle("POST /v1/books/{id}/refresh", authed(c.RefreshBook))
	mux.Handle("DELETE /v1/books/{id}", authed(c.DeleteBook))

	mux.HandleFunc("GET /v1/lookup/{isbn}", c.Lookup)

	mux.HandleFunc("GET /v1/logs", c.ListLogs)
	mux.Handle("POST /v1/logs/{id}/restore", authed(c.RestoreBook))

	mux.HandleFunc("GET /v1/locations", c.ListLocations)
	mux.HandleFunc("GET /v1/locations/{id}", c.GetLocation)
	mux.Handle("POST /v1/locations", authed(c.CreateLocation))
	mux.Handle("PUT /v1/locations/{id}", authed(c.UpdateLocation))
	mux.Handle("DELETE /v1/locations/{id}", authed(c.DeleteLocation))

	handler := httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.RecoveryMiddleware(d.Log),
		httpx.AccessLogMiddleware(d.Log),
		httpx.SecurityHeadersMiddleware(d.Server.EnableHSTS),
		httpx.CORSMiddleware(d.Server.AllowedOrigins),
		httpx.RequestSizeLimitMiddleware(d.Server.MaxBodyBytes),
		httpx.MetricsMiddleware(d.Metrics),
	)
	return &Router{handler: handler, loginLimiter: loginLimiter}
}
