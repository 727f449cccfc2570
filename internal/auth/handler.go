package auth

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
	"github.com/quinisports/quinisports/internal/view"
)

const adminHome = "/qs-admin"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	guard          *guard.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, g *guard.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		guard:          g,
	}
}

// MountRoutes registers the /auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Gate(guard.ModeAPI))
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/login", h.handleLogin)
		r.Post("/federated", h.handleFederated)
	})
	r.Post("/logout", h.handleLogout)
}

// MountLoginPage registers the admin sign-in page.
func (h *Handler) MountLoginPage(r chi.Router) {
	r.With(h.guard.Gate(guard.ModePage)).Get("/qs-admin/auth/login", h.showLogin)
}

// MountSessionRoutes registers the session introspection API.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.With(h.guard.Authenticated(guard.ModeAPI)).Get("/api/session", h.showSession)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Next     string `json:"next,omitempty"`
}

type federatedRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && policy.CanEnterAdminArea(sess.Role) && !sess.Suspended() {
		http.Redirect(w, r, adminHome, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, safeNext(r.URL.Query().Get("next")), nil)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, next string, errs map[string]string) {
	viewData := view.TemplateData{
		Title:       "Ingresar",
		CurrentPath: r.URL.Path,
		Errors:      errs,
		Data:        next,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if isJSON(r) {
		var req loginRequest
		if err := httpx.DecodeAndValidate(w, r, &req); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		h.completeAPI(w, r, PasswordCredential{Email: req.Email, Password: req.Password})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Next:     safeNext(r.PostFormValue("next")),
	}
	if err := httpx.Validate(form); err != nil {
		var verr *shared.ValidationError
		fields := map[string]string{"general": "Revise los datos ingresados"}
		if errors.As(err, &verr) {
			for k, v := range verr.Fields {
				fields[k] = v
			}
		}
		h.renderLogin(w, r, http.StatusBadRequest, form.Next, fields)
		return
	}

	user, err := h.service.Authenticate(r.Context(), PasswordCredential{Email: form.Email, Password: form.Password})
	if err != nil {
		h.logFailure(r, MethodPassword, err)
		h.renderLogin(w, r, http.StatusBadRequest, form.Next, map[string]string{"general": loginMessage(err)})
		return
	}
	if _, err := h.sessionManager.Issue(r.Context(), w, user.Identity()); err != nil {
		h.logger.Error("issue session", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	target := form.Next
	if target == "" || !policy.CanEnterAdminArea(user.Role) {
		target = adminHome
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleFederated(w http.ResponseWriter, r *http.Request) {
	var req federatedRequest
	if err := httpx.DecodeAndValidate(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.completeAPI(w, r, FederatedCredential{IDToken: req.IDToken})
}

func (h *Handler) completeAPI(w http.ResponseWriter, r *http.Request, cred Credential) {
	user, err := h.service.Authenticate(r.Context(), cred)
	if err != nil {
		h.logFailure(r, cred.Method(), err)
		if errors.Is(err, shared.ErrInvalidCredentials) || errors.Is(err, shared.ErrUnknownUser) || errors.Is(err, shared.ErrForbidden) {
			code := httpx.CodeUnauthenticated
			status := http.StatusUnauthorized
			if errors.Is(err, shared.ErrForbidden) {
				code, status = httpx.CodeForbidden, http.StatusForbidden
			}
			httpx.Fail(w, status, code, loginMessage(err), nil)
			return
		}
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sess, err := h.sessionManager.Issue(r.Context(), w, user.Identity())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, NewSessionView(sess, token))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.sessionManager.Destroy(r.Context(), w, sess); err != nil {
		h.logger.Warn("revoke session", slog.Any("error", err))
	}
	if isJSON(r) || strings.HasPrefix(r.Header.Get("Accept"), "application/json") {
		httpx.OK(w, http.StatusOK, map[string]bool{"signedOut": true})
		return
	}
	http.Redirect(w, r, guard.DefaultLoginPath, http.StatusSeeOther)
}

func (h *Handler) showSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, NewSessionView(sess, token))
}

func (h *Handler) logFailure(r *http.Request, method string, err error) {
	h.logger.Warn("sign-in failed",
		slog.String("method", method),
		slog.String("ip", r.RemoteAddr),
		slog.Any("error", err))
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnknownUser):
		return "El usuario no se encuentra registrado"
	case errors.Is(err, shared.ErrForbidden):
		return "La cuenta se encuentra suspendida"
	default:
		return "Correo o contraseña inválidos"
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// safeNext keeps only local admin paths as post-login targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, adminHome) || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	if strings.HasPrefix(next, guard.DefaultLoginPath) {
		return ""
	}
	return next
}
