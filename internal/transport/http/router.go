package http

import (
	"net/http"

	"github.com/IgorGrieder/linkdeck/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkdeck/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

var spanNames = map[string]string{
	"GET /health":                                    "health",
	"GET /metrics":                                   "metrics",
	"GET /{code}":                                    "links.redirect",
	"POST /api/links":                                "links.create",
	"GET /api/links/{code}":                          "links.get",
	"PATCH /api/links/{id}":                          "links.update",
	"DELETE /api/links/{id}":                         "links.delete",
	"GET /api/me/links":                              "links.list_mine",
	"GET /api/me/analytics":                          "analytics.summary",
	"POST /api/auth/register":                        "auth.register",
	"POST /api/auth/login":                           "auth.login",
	"GET /api/auth/google/login":                     "auth.google_login",
	"GET /api/auth/google/callback":                  "auth.google_callback",
	"GET /api/me":                                    "accounts.me",
	"PATCH /api/me":                                  "accounts.update_me",
	"POST /api/unlockers":                            "unlockers.create",
	"GET /api/me/unlockers":                          "unlockers.list_mine",
	"DELETE /api/unlockers/{id}":                     "unlockers.delete",
	"POST /api/unlockers/{id}/sessions":              "unlockers.open",
	"POST /api/unlockers/{id}/sessions/{sid}/clicks": "unlockers.click",
	"POST /api/biocards":                             "biocards.create",
	"GET /api/me/biocards":                           "biocards.list_mine",
	"PUT /api/biocards/{id}":                         "biocards.update",
	"DELETE /api/biocards/{id}":                      "biocards.delete",
	"GET /b/{slug}":                                  "biocards.public",
	"GET /api/admin/users":                           "admin.list_users",
	"PATCH /api/admin/users/{id}/limit":              "admin.set_limit",
}

type RouterOptions struct {
	AppName        string
	EnableCORS     bool
	EnableLogging  bool
	EnableMetrics  bool
	AllowedOrigins []string
	AdminAPIKeys   []string

	// Limiter may be nil to disable rate limiting.
	Limiter              middleware.Limiter
	CreateRatePerMinute  int
	SessionRatePerMinute int
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *HealthHandler
	Links    *LinksHandler
	Auth     *AuthHandler
	Accounts *AccountHandler
	Unlocker *UnlockerHandler
	BioCards *BioCardsHandler
	Sessions middleware.SessionParser
}

func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, handler http.Handler) {
		mux.Handle(pattern, nameSpan(pattern, handler))
	}

	// Authenticate runs per route so the mux sets r.Pattern on the request the
	// outer middleware sees.
	public := func(fn http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(fn, append([]func(http.Handler) http.Handler{middleware.Authenticate(h.Sessions)}, mws...)...)
	}
	private := func(fn http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
		return public(fn, append([]func(http.Handler) http.Handler{middleware.RequireSession}, mws...)...)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return middleware.Chain(fn, middleware.APIKeyMiddleware(opts.AdminAPIKeys))
	}
	createLimit := middleware.RateLimit(opts.Limiter, "links.create", opts.CreateRatePerMinute)
	sessionLimit := middleware.RateLimit(opts.Limiter, "gate.open", opts.SessionRatePerMinute)

	handle("GET /health", http.HandlerFunc(h.Health.Health))
	handle("GET /metrics", h.Health.Metrics())

	handle("GET /{code}", http.HandlerFunc(h.Links.Redirect))
	handle("POST /api/links", public(h.Links.Create, createLimit))
	handle("GET /api/links/{code}", http.HandlerFunc(h.Links.Get))
	handle("PATCH /api/links/{id}", private(h.Links.Update))
	handle("DELETE /api/links/{id}", private(h.Links.Delete))
	handle("GET /api/me/links", private(h.Links.ListMine))
	handle("GET /api/me/analytics", private(h.Links.Analytics))

	handle("POST /api/auth/register", http.HandlerFunc(h.Auth.Register))
	handle("POST /api/auth/login", http.HandlerFunc(h.Auth.Login))
	handle("GET /api/auth/google/login", http.HandlerFunc(h.Auth.GoogleLogin))
	handle("GET /api/auth/google/callback", http.HandlerFunc(h.Auth.GoogleCallback))
	handle("GET /api/me", private(h.Accounts.Me))
	handle("PATCH /api/me", private(h.Accounts.UpdateMe))

	handle("POST /api/unlockers", private(h.Unlocker.Create))
	handle("GET /api/me/unlockers", private(h.Unlocker.ListMine))
	handle("DELETE /api/unlockers/{id}", private(h.Unlocker.Delete))
	handle("POST /api/unlockers/{id}/sessions", public(h.Unlocker.Open, sessionLimit))
	handle("POST /api/unlockers/{id}/sessions/{sid}/clicks", http.HandlerFunc(h.Unlocker.Click))

	handle("POST /api/biocards", private(h.BioCards.Create))
	handle("GET /api/me/biocards", private(h.BioCards.ListMine))
	handle("PUT /api/biocards/{id}", private(h.BioCards.Update))
	handle("DELETE /api/biocards/{id}", private(h.BioCards.Delete))
	handle("GET /b/{slug}", http.HandlerFunc(h.BioCards.Public))

	handle("GET /api/admin/users", admin(h.Accounts.ListUsers))
	handle("PATCH /api/admin/users/{id}/limit", admin(h.Accounts.SetLimit))

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(opts.AllowedOrigins)(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		// Routing has not happened yet; nameSpan renames matched requests.
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	}
	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	name := opts.AppName
	if name == "" {
		name = "linkdeck"
	}
	return otelhttp.NewHandler(innerHandler, name, otelOptions...)
}

// nameSpan names the server span after the matched route.
func nameSpan(pattern string, next http.Handler) http.Handler {
	name, ok := spanNames[pattern]
	if !ok {
		name = pattern
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace.SpanFromContext(r.Context()).SetName(name)
		next.ServeHTTP(w, r)
	})
}
