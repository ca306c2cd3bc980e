package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/shared"
)

var errSessionMissing = errors.New("session missing from request context")

// Authenticator checks credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (string, error)
	Logout(ctx context.Context, user string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        Authenticator
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service Authenticator, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router. protect guards the
// routes that need an authenticated session.
func (h *Handler) MountRoutes(r chi.Router, protect ...func(http.Handler) http.Handler) {
	r.Get("/session", h.session)
	r.Post("/login", h.login)
	r.With(protect...).Post("/logout", h.logout)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.fail(w, "session", errSessionMissing)
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.fail(w, "session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, SessionInfo{
		Authenticated: sess.User() != "",
		User:          sess.User(),
		CSRFToken:     token,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.fail(w, "login", errSessionMissing)
		return
	}
	var creds Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Authenticate(r.Context(), creds)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(user)
	sess.Delete(shared.CSRFSessionKey)
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.logger.Info("admin logged in", slog.String("user", user))
	httpx.JSON(w, http.StatusOK, SessionInfo{Authenticated: true, User: user, CSRFToken: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.service.Logout(r.Context(), sess.User())
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	} else {
		h.logger.Info(op+" rejected", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// RequireSession rejects requests whose session carries no user.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.ActorFromContext(r.Context()) == "" {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
