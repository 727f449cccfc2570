package app

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/quinisports/quinisports/internal/observability"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/shared"
)

// csrfExempt lists the mutating routes reachable before a session exists.
var csrfExempt = map[string]bool{
	"/auth/login":     true,
	"/auth/federated": true,
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	// GateOpen reports whether the maintenance gate admits the request.
	GateOpen func(*http.Request) bool
}

// MiddlewareStack installs the QuiniSports middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		sessionMiddleware(cfg.SessionManager, cfg.GateOpen, logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(300, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		csrfMiddleware(cfg.CSRFManager, cfg.GateOpen, logger),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// sessionMiddleware resolves the signed session cookie into the request
// context. A revocation store failure leaves the request anonymous. A closed
// maintenance gate skips the lookup and never renews the cookie.
func sessionMiddleware(manager *shared.SessionManager, gateOpen func(*http.Request) bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil || (gateOpen != nil && !gateOpen(r)) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			sess, err := manager.Load(ctx, r)
			if err != nil {
				logger.Error("failed to load session", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}
			if sess != nil && manager.ShouldRenew(sess) {
				renewed, err := manager.Renew(ctx, w, sess)
				if err != nil {
					logger.Warn("renew session", slog.Any("error", err))
				} else {
					sess = renewed
				}
			}
			if sess != nil {
				ctx = shared.ContextWithSession(ctx, sess)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// csrfMiddleware verifies the CSRF token of mutating requests that carry a
// session. Anonymous requests continue so the guard can answer them.
func csrfMiddleware(manager *shared.CSRFManager, gateOpen func(*http.Request) bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || csrfExempt[r.URL.Path] || manager == nil {
				next.ServeHTTP(w, r)
				return
			}
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get(shared.CSRFHeader)
			if token == "" && isForm(r) {
				token = r.PostFormValue(shared.CSRFFormField)
			}
			if err := manager.VerifyToken(r.Context(), sess, token); err != nil {
				if gateOpen != nil && !gateOpen(r) {
					httpx.Fail(w, http.StatusServiceUnavailable, httpx.CodeMaintenanceClosed, shared.ErrMaintenance.Error(), nil)
					return
				}
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.String("subject", sess.SubjectID))
				if strings.HasPrefix(r.URL.Path, "/api/") {
					httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, "invalid csrf token", nil)
					return
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
