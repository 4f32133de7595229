package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"campushub-backend/internal/auth"
	"campushub-backend/internal/database"
	"campushub-backend/internal/uploads"
)

// Options are the request limits enforced by the handlers
type Options struct {
	MinPasswordLength int
	MaxImageBytes     int64
}

// Deps bundles everything the handlers need
type Deps struct {
	DB      *sql.DB
	Gate    *auth.Gate
	Limiter *auth.RateLimiter
	// OIDC is nil when single sign-on is not configured
	OIDC    *auth.OIDCAuthenticator
	Uploads uploads.Store
	Options Options
	Logger  *slog.Logger
}

// Handler serves the JSON API
type Handler struct {
	db          *sql.DB
	gate        *auth.Gate
	sessions    *auth.Service
	credentials *auth.CredentialStore
	local       auth.Authenticator
	oidc        *auth.OIDCAuthenticator
	limiter     *auth.RateLimiter
	projects    *database.ProjectRepo
	clubs       *database.ClubRepo
	profiles    *database.ProfileRepo
	audit       *database.AuditRepo
	uploads     uploads.Store
	opts        Options
	logger      *slog.Logger
}

// New creates the API handler
func New(deps Deps) *Handler {
	svc := deps.Gate.Service()
	opts := deps.Options
	if opts.MinPasswordLength < 1 {
		opts.MinPasswordLength = 8
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 5 << 20
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.DefaultRateLimiter()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		db:          deps.DB,
		gate:        deps.Gate,
		sessions:    svc,
		credentials: svc.Credentials(),
		local:       auth.NewLocalAuthenticator(svc.Credentials()),
		oidc:        deps.OIDC,
		limiter:     limiter,
		projects:    database.NewProjectRepo(deps.DB),
		clubs:       database.NewClubRepo(deps.DB),
		profiles:    database.NewProfileRepo(deps.DB),
		audit:       database.NewAuditRepo(deps.DB),
		uploads:     deps.Uploads,
		opts:        opts,
		logger:      logger,
	}
}

// Health check
func (h *Handler) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", slog.Any("error", err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// internalError logs err and answers with a generic 500
func (h *Handler) internalError(c echo.Context, msg string, err error) error {
	h.logger.ErrorContext(c.Request().Context(), msg, slog.Any("error", err))
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": msg,
	})
}

// logAudit records an action of the request's principal. Failures are
// logged and never fail the request.
func (h *Handler) logAudit(c echo.Context, action, target string, details any) {
	var userID int64
	var username string
	if p := auth.GetPrincipalFromContext(c); p != nil {
		userID = p.ID
		username = p.Username
	}
	h.logAuditAs(c, userID, username, action, target, details)
}

func (h *Handler) logAuditAs(c echo.Context, userID int64, username, action, target string, details any) {
	ctx := c.Request().Context()
	if err := h.audit.Log(ctx, userID, username, action, target, details, c.RealIP()); err != nil {
		h.logger.WarnContext(ctx, "failed to write audit log",
			slog.String("action", action), slog.Any("error", err))
	}
}

func clientInfo(c echo.Context) auth.ClientInfo {
	return auth.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// parseID parses a string ID to int64
func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
