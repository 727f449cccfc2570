// Package guard is the checkpoint every protected page and API route passes
// before its handler runs.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/quinisports/quinisports/internal/observability"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// Mode selects how a denial is surfaced.
type Mode string

// Guard modes.
const (
	ModePage Mode = "page"
	ModeAPI  Mode = "api"
)

// Outcome is the result of a guard decision.
type Outcome string

// Guard outcomes.
const (
	Allowed         Outcome = "allowed"
	Maintenance     Outcome = "maintenance"
	Unauthenticated Outcome = "unauthenticated"
	ClientRole      Outcome = "client"
	Forbidden       Outcome = "forbidden"
)

// Default redirect targets.
const (
	DefaultLoginPath       = "/qs-admin/auth/login"
	DefaultMaintenancePath = "/en-mantenimiento"
	DefaultPublicPath      = "/"
)

// Config controls the maintenance gate and redirect targets.
type Config struct {
	GateHeader      string
	GateOpenValue   string
	GateDisabled    bool
	LoginPath       string
	MaintenancePath string
	PublicPath      string
}

// Guard enforces the maintenance gate, authentication, the admin-area role
// rule and the role policy, in that order.
type Guard struct {
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New constructs a Guard.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Guard {
	if cfg.GateHeader == "" {
		cfg.GateHeader = "Quini-Access"
	}
	if cfg.GateOpenValue == "" {
		cfg.GateOpenValue = "true"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.MaintenancePath == "" {
		cfg.MaintenancePath = DefaultMaintenancePath
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = DefaultPublicPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{cfg: cfg, logger: logger, metrics: metrics}
}

// GateOpen reports whether the deployment gate admits the request.
func (g *Guard) GateOpen(r *http.Request) bool {
	if g.cfg.GateDisabled {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(g.cfg.GateHeader)), g.cfg.GateOpenValue)
}

// Decide evaluates the guard for a request and its session. An empty
// resource only requires an admin-area session.
func (g *Guard) Decide(r *http.Request, sess *shared.Session, res policy.Resource, verb policy.Verb) Outcome {
	if !g.GateOpen(r) {
		return Maintenance
	}
	if sess == nil {
		return Unauthenticated
	}
	if sess.Role == policy.RoleClient {
		return ClientRole
	}
	if !policy.CanEnterAdminArea(sess.Role) || sess.Suspended() {
		return Forbidden
	}
	if sess.Role.IsStaff() && sess.BusinessID == nil {
		return Forbidden
	}
	if res != "" && !policy.IsAuthorized(sess.Role, res, verb) {
		return Forbidden
	}
	return Allowed
}

// Gate only enforces the maintenance gate. It fronts the sign-in surface of
// the admin area.
func (g *Guard) Gate(mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.GateOpen(r) {
				g.deny(w, r, mode, Maintenance, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Page guards a server-rendered admin page.
func (g *Guard) Page(res policy.Resource, verb policy.Verb) func(http.Handler) http.Handler {
	return g.middleware(ModePage, res, verb)
}

// API guards a JSON route.
func (g *Guard) API(res policy.Resource, verb policy.Verb) func(http.Handler) http.Handler {
	return g.middleware(ModeAPI, res, verb)
}

// Authenticated requires an admin-area session without a specific grant.
func (g *Guard) Authenticated(mode Mode) func(http.Handler) http.Handler {
	return g.middleware(mode, "", "")
}

func (g *Guard) middleware(mode Mode, res policy.Resource, verb policy.Verb) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			outcome := g.Decide(r, sess, res, verb)
			if outcome != Allowed {
				g.deny(w, r, mode, outcome, sess)
				return
			}
			g.metrics.GuardDecision(string(mode), string(outcome))
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, mode Mode, outcome Outcome, sess *shared.Session) {
	g.metrics.GuardDecision(string(mode), string(outcome))
	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.String("mode", string(mode)),
		slog.String("outcome", string(outcome)),
	}
	if sess != nil {
		attrs = append(attrs, slog.String("role", string(sess.Role)), slog.String("subject", sess.SubjectID))
	}
	switch outcome {
	case Maintenance, Unauthenticated:
		g.logger.Info("guard denied request", attrs...)
	default:
		g.logger.Warn("guard denied request", attrs...)
	}

	if mode == ModeAPI {
		switch outcome {
		case Maintenance:
			httpx.Fail(w, http.StatusServiceUnavailable, httpx.CodeMaintenanceClosed, shared.ErrMaintenance.Error(), nil)
		case Unauthenticated:
			httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, shared.ErrUnauthenticated.Error(), nil)
		default:
			httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, shared.ErrForbidden.Error(), nil)
		}
		return
	}

	switch outcome {
	case Maintenance:
		http.Redirect(w, r, g.cfg.MaintenancePath, http.StatusSeeOther)
	case Unauthenticated:
		target := g.cfg.LoginPath
		if r.Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	case ClientRole:
		http.Redirect(w, r, g.cfg.PublicPath, http.StatusSeeOther)
	default:
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	}
}
