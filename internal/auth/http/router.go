package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/obs"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
	"github.com/aussiebroadwan/voltex/pkg/slogx"

	_ "github.com/aussiebroadwan/voltex/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

const permAuditRead = "audit:read"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Authenticator  *service.Authenticator
	Verifier       *service.Verifier
	AccountService *service.AccountService
	MFAService     *service.MFAService
	AuditService   *service.AuditService

	// Limits are the rate limit presets; NewRouter sets the defaults.
	Limits httpx.RateLimits
	// LoginLimit throttles login attempts per client IP and email. Zero
	// means Limits.Strict.
	LoginLimit httpx.RateLimitConfig
	// TrustedProxies may set X-Forwarded-For and X-Real-IP.
	TrustedProxies []netip.Prefix

	// Now is used for expires_in; nil means time.Now.
	Now func() time.Time
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       httpx.DefaultRateLimits(),
	}

	r.middlewares = []httpx.Middleware{
		obs.Instrument,
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.middlewares = append([]httpx.Middleware{httpx.ClientIPMiddleware(r.TrustedProxies)}, r.middlewares...)
	if r.LoginLimit == (httpx.RateLimitConfig{}) {
		r.LoginLimit = r.Limits.Strict
	}

	r.registerCredentials()
	r.registerAccount()
	r.registerMFA()
	r.registerAudit()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Voltex Authentication Service API
//	@version		0.1.0
//	@description	Credential login, session management and audit trail for the Voltex trading platform.
//	@description
//	@description				Access tokens are HS256 JWTs bound to a server-side session. Ending the session revokes the token immediately.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/voltex
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// bearer wraps h with token verification and a per-user rate limit.
func (r *Router) bearer(h http.Handler, limit httpx.RateLimitConfig, extra ...httpx.Middleware) http.Handler {
	mw := append([]httpx.Middleware{httpx.RequireAuth(r.Verifier)}, extra...)
	mw = append(mw, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, mw...)
}

func (r *Router) registerCredentials() {
	h := &CredentialsHandler{
		Auth:     r.Authenticator,
		Accounts: r.AccountService,
		Now:      r.Now,
	}

	// Limited per IP and email so one address cannot spray a single account.
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.LoginLimit, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{
		Auth:     r.Authenticator,
		Accounts: r.AccountService,
		MFA:      r.MFAService,
	}

	r.Mux.Handle("GET /api/auth/me", r.bearer(http.HandlerFunc(h.HandleMe), r.Limits.Lenient))
	r.Mux.Handle("GET /api/auth/sessions", r.bearer(http.HandlerFunc(h.HandleSessions), r.Limits.Lenient))
	r.Mux.Handle("POST /api/auth/logout-all", r.bearer(http.HandlerFunc(h.HandleLogoutAll), r.Limits.Moderate))
	r.Mux.Handle("POST /api/auth/password", r.bearer(http.HandlerFunc(h.HandleChangePassword), r.Limits.Strict))
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /api/auth/mfa/enroll", r.bearer(http.HandlerFunc(h.HandleEnroll), r.Limits.Moderate))
	// Code-checking routes are strict so TOTP codes cannot be brute forced.
	r.Mux.Handle("POST /api/auth/mfa/verify", r.bearer(http.HandlerFunc(h.HandleVerify), r.Limits.Strict))
	r.Mux.Handle("POST /api/auth/mfa/recovery", r.bearer(http.HandlerFunc(h.HandleRegenerateBackupCodes), r.Limits.Strict))
	r.Mux.Handle("POST /api/auth/mfa/disable", r.bearer(http.HandlerFunc(h.HandleDisable), r.Limits.Strict))
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Audit: r.AuditService}

	r.Mux.Handle("GET /api/audit",
		r.bearer(h, r.Limits.Moderate, httpx.RequirePermission(permAuditRead)),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems poll these from shared addresses.
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
	r.Mux.Handle("GET /metrics", obs.Handler())
}
