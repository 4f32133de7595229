package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"campushub-backend/internal/auth"
	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
)

const oidcStateCookie = "campushub_oidc_state"

var (
	statusSuccess = map[string]string{"status": "success"}
	statusFailure = map[string]string{"status": "failure"}
)

// validateSignup checks a signup request before it reaches the store. The
// returned reason is only logged.
func validateSignup(req *models.SignupRequest, minPasswordLength int) (string, bool) {
	fields := map[string]string{
		"firstname": req.FirstName,
		"lastname":  req.LastName,
		"username":  req.Username,
		"email":     req.Email,
		"campus":    req.Campus,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return name + " is required", false
		}
	}
	if len(strings.TrimSpace(req.Username)) > 64 {
		return "username too long", false
	}
	email := strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "invalid email", false
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return "password too short", false
	}
	return "", true
}

// signup handles POST /api/auth/signup
func (h *Handler) signupHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusFailure)
	}
	if reason, ok := validateSignup(&req, h.opts.MinPasswordLength); !ok {
		h.logger.DebugContext(ctx, "signup rejected", slog.String("reason", reason))
		return c.JSON(http.StatusBadRequest, statusFailure)
	}

	principal, err := h.credentials.Register(ctx, req.Candidate(), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateIdentity):
			return c.JSON(http.StatusConflict, statusFailure)
		case errors.Is(err, auth.ErrInvalidCandidate):
			return c.JSON(http.StatusBadRequest, statusFailure)
		default:
			h.logger.ErrorContext(ctx, "signup error", slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, statusFailure)
		}
	}

	h.logAuditAs(c, principal.ID, principal.Username, models.ActionSignup, principal.Username, map[string]any{
		"campus": principal.Campus,
	})

	return c.JSON(http.StatusCreated, statusSuccess)
}

// login handles POST /api/auth/login
func (h *Handler) loginHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusFailure)
	}

	resp, err := h.sessions.Login(ctx, h.local, auth.Credentials{
		Username: req.Username,
		Password: req.Password,
	}, clientInfo(c))
	if err != nil {
		if errors.Is(err, auth.ErrAuthFailure) {
			h.auditLoginFailure(c, req.Username)
			return c.JSON(http.StatusUnauthorized, statusFailure)
		}
		h.logger.ErrorContext(ctx, "login error", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, statusFailure)
	}

	return h.completeLogin(c, resp)
}

// auditLoginFailure attributes a failed login to the account it targeted, if
// any, so the owner sees it in their activity.
func (h *Handler) auditLoginFailure(c echo.Context, username string) {
	username = strings.TrimSpace(username)
	var userID int64
	if username != "" {
		if target, err := h.credentials.LookupByUsername(c.Request().Context(), username); err == nil {
			userID = target.ID
			username = target.Username
		}
	}
	h.logAuditAs(c, userID, username, models.ActionLoginFailed, username, nil)
}

func (h *Handler) completeLogin(c echo.Context, resp *auth.LoginResponse) error {
	h.limiter.RecordSuccess(c.RealIP())
	h.gate.SetSessionCookie(c, resp.Token, resp.Session.ExpiresAt)
	h.logAuditAs(c, resp.Principal.ID, resp.Principal.Username, models.ActionLogin, h.local.Name(), map[string]any{
		"session_id": resp.Session.ID,
	})

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "success",
		"user":       resp.Principal,
		"csrf_token": resp.Session.CSRFToken,
		"expires_at": resp.Session.ExpiresAt,
	})
}

// oidcLogin handles GET /api/auth/oidc/login by redirecting to the provider
func (h *Handler) oidcLoginHandler(c echo.Context) error {
	if h.oidc == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "single sign-on is not configured",
		})
	}

	state, err := auth.NewState()
	if err != nil {
		return h.internalError(c, "failed to start single sign-on", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/api/auth/oidc",
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	return c.Redirect(http.StatusFound, h.oidc.AuthCodeURL(state))
}

// oidcCallback handles GET /api/auth/oidc/callback
func (h *Handler) oidcCallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()
	if h.oidc == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "single sign-on is not configured",
		})
	}

	stateCookie, err := c.Cookie(oidcStateCookie)
	c.SetCookie(&http.Cookie{
		Name:     oidcStateCookie,
		Path:     "/api/auth/oidc",
		HttpOnly: true,
		MaxAge:   -1,
	})
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		return c.JSON(http.StatusUnauthorized, statusFailure)
	}

	resp, err := h.sessions.Login(ctx, h.oidc, auth.Credentials{Code: c.QueryParam("code")}, clientInfo(c))
	if err != nil {
		if errors.Is(err, auth.ErrAuthFailure) {
			h.logAuditAs(c, 0, "", models.ActionLoginFailed, h.oidc.Name(), nil)
			return c.JSON(http.StatusUnauthorized, statusFailure)
		}
		h.logger.ErrorContext(ctx, "oidc login error", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, statusFailure)
	}

	h.limiter.RecordSuccess(c.RealIP())
	h.gate.SetSessionCookie(c, resp.Token, resp.Session.ExpiresAt)
	h.logAuditAs(c, resp.Principal.ID, resp.Principal.Username, models.ActionLogin, h.oidc.Name(), map[string]any{
		"session_id": resp.Session.ID,
	})
	return c.Redirect(http.StatusFound, "/")
}

// logout handles POST /api/auth/logout
func (h *Handler) logoutHandler(c echo.Context) error {
	ac := auth.FromEcho(c)

	if err := h.sessions.Logout(c.Request().Context(), ac.Token()); err != nil {
		// Session already gone, that's fine
		if !errors.Is(err, auth.ErrUnauthorized) {
			return h.internalError(c, "failed to log out", err)
		}
	}

	h.gate.ClearSessionCookie(c)
	h.logAudit(c, models.ActionLogout, "", nil)

	return c.JSON(http.StatusOK, statusSuccess)
}

// refresh handles POST /api/auth/refresh
func (h *Handler) refreshHandler(c echo.Context) error {
	ac := auth.FromEcho(c)

	session, err := h.sessions.Refresh(c.Request().Context(), ac.Session())
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "session expired or invalid",
			})
		}
		return h.internalError(c, "failed to refresh session", err)
	}

	if ac.ViaCookie() {
		h.gate.SetSessionCookie(c, ac.Token(), session.ExpiresAt)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"expires_at": session.ExpiresAt,
	})
}

// getCurrentUser handles GET /api/auth/me
func (h *Handler) getCurrentUser(c echo.Context) error {
	ac := auth.FromEcho(c)
	principal, _ := ac.Principal()

	return c.JSON(http.StatusOK, map[string]any{
		"user":       principal,
		"session":    ac.Session(),
		"csrf_token": ac.Session().CSRFToken,
	})
}

type sessionView struct {
	*models.Session
	Current bool `json:"current"`
}

// getUserSessions handles GET /api/auth/sessions
func (h *Handler) getUserSessions(c echo.Context) error {
	ac := auth.FromEcho(c)
	principal, _ := ac.Principal()

	sessions, err := h.sessions.Sessions(c.Request().Context(), principal.ID)
	if err != nil {
		return h.internalError(c, "failed to get sessions", err)
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{Session: s, Current: s.ID == ac.Session().ID})
	}
	return c.JSON(http.StatusOK, views)
}

// revokeAllSessions handles DELETE /api/auth/sessions, signing the
// principal out everywhere including the current session.
func (h *Handler) revokeAllSessions(c echo.Context) error {
	principal := auth.GetPrincipalFromContext(c)

	n, err := h.sessions.RevokeAllSessions(c.Request().Context(), principal.ID)
	if err != nil {
		return h.internalError(c, "failed to revoke sessions", err)
	}

	h.gate.ClearSessionCookie(c)
	h.logAudit(c, models.ActionSessionRevoke, "all", map[string]any{
		"revoked": n,
	})

	return c.JSON(http.StatusOK, map[string]any{
		"message": "all sessions revoked",
		"revoked": n,
	})
}

// revokeSession handles DELETE /api/auth/sessions/:id
func (h *Handler) revokeSession(c echo.Context) error {
	ac := auth.FromEcho(c)
	principal, _ := ac.Principal()

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid session ID",
		})
	}

	if err := h.sessions.RevokeSession(c.Request().Context(), principal.ID, sessionID); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "session not found",
			})
		}
		return h.internalError(c, "failed to revoke session", err)
	}

	if sessionID == ac.Session().ID {
		h.gate.ClearSessionCookie(c)
	}
	h.logAudit(c, models.ActionSessionRevoke, c.Param("id"), nil)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "session revoked",
	})
}
