package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"campushub-backend/internal/models"
)

// Context key for storing the per-request authorization context
const ContextKeyAuth = "auth"

type authContextKey struct{}

// AuthContext is the immutable authorization state of one request: either
// anonymous or bound to a principal and its session.
type AuthContext struct {
	principal *models.Principal
	session   *models.Session
	token     string
	viaCookie bool
}

// Anonymous is the AuthContext of a request without a live session
var Anonymous = AuthContext{}

// Authenticated reports whether the request is bound to a principal
func (a AuthContext) Authenticated() bool {
	return a.principal != nil
}

// Principal returns the bound principal, if any
func (a AuthContext) Principal() (*models.Principal, bool) {
	return a.principal, a.principal != nil
}

// Session returns the bound session, if any
func (a AuthContext) Session() *models.Session {
	return a.session
}

// Token returns the session token presented with the request
func (a AuthContext) Token() string {
	return a.token
}

// ViaCookie reports whether the session token came from the session cookie
func (a AuthContext) ViaCookie() bool {
	return a.viaCookie
}

// RequireAuthenticated returns the principal or ErrUnauthorized
func (a AuthContext) RequireAuthenticated() (*models.Principal, error) {
	if a.principal == nil {
		return nil, ErrUnauthorized
	}
	return a.principal, nil
}

// WithAuthContext returns a copy of ctx carrying ac
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext returns the AuthContext carried by ctx, or Anonymous
func FromContext(ctx context.Context) AuthContext {
	if ac, ok := ctx.Value(authContextKey{}).(AuthContext); ok {
		return ac
	}
	return Anonymous
}

// FromEcho returns the AuthContext attached to an echo request, or Anonymous
func FromEcho(c echo.Context) AuthContext {
	if ac, ok := c.Get(ContextKeyAuth).(AuthContext); ok {
		return ac
	}
	return Anonymous
}

// GetPrincipalFromContext retrieves the authenticated principal, or nil
func GetPrincipalFromContext(c echo.Context) *models.Principal {
	p, _ := FromEcho(c).Principal()
	return p
}

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name string
	// ForceSecure marks the cookie Secure even when the request was not
	// received over TLS, for deployments behind a TLS-terminating proxy.
	ForceSecure bool
}

// Gate is the HTTP side of the session service: it resolves the session
// token of each request into an AuthContext and guards privileged routes.
type Gate struct {
	svc    *Service
	cookie CookieConfig
	logger *slog.Logger
}

// NewGate creates a gate for svc
func NewGate(svc *Service, cookie CookieConfig, logger *slog.Logger) *Gate {
	if cookie.Name == "" {
		cookie.Name = "campushub_session"
	}
	return &Gate{svc: svc, cookie: cookie, logger: logger}
}

// Service returns the session service behind the gate
func (g *Gate) Service() *Service {
	return g.svc
}

// Attach middleware resolves the request's session once and attaches the
// resulting AuthContext. Resolution failures leave the request anonymous.
func (g *Gate) Attach() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := Anonymous
			token, viaCookie := g.tokenFromRequest(c)
			if token != "" {
				principal, session, err := g.svc.ResolvePrincipal(c.Request().Context(), token)
				switch {
				case err == nil:
					ac = AuthContext{
						principal: principal,
						session:   session,
						token:     token,
						viaCookie: viaCookie,
					}
				case errors.Is(err, ErrStoreUnavailable):
					g.logger.ErrorContext(c.Request().Context(), "session resolution failed", slog.Any("error", err))
				}
			}

			c.Set(ContextKeyAuth, ac)
			c.SetRequest(c.Request().WithContext(WithAuthContext(c.Request().Context(), ac)))
			return next(c)
		}
	}
}

// RequireAuth middleware rejects anonymous requests before the handler runs.
// Must be used after Attach.
func (g *Gate) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := FromEcho(c).RequireAuthenticated(); err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}
			return next(c)
		}
	}
}

// SetSessionCookie sets the session cookie for a freshly issued session
func (g *Gate) SetSessionCookie(c echo.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(&http.Cookie{
		Name:     g.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearSessionCookie expires the session cookie on the client
func (g *Gate) ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     g.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (g *Gate) secure(c echo.Context) bool {
	return g.cookie.ForceSecure || c.Request().TLS != nil || c.Scheme() == "https"
}

// tokenFromRequest extracts the session token from the request
func (g *Gate) tokenFromRequest(c echo.Context) (string, bool) {
	// Try Authorization header first (Bearer token)
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), false
	}

	// Try cookie
	cookie, err := c.Cookie(g.cookie.Name)
	if err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	return "", false
}
