package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HeaderCSRFToken carries the per-session CSRF secret on state-changing requests
const HeaderCSRFToken = "X-CSRF-Token"

// CSRF middleware validates the session's CSRF token for state-changing
// requests (POST, PUT, DELETE, PATCH) that were authenticated by cookie.
// Bearer-authenticated and anonymous requests pass through; RequireAuth
// decides about the latter. Must be used after Attach.
func (g *Gate) CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip CSRF check for safe methods
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			ac := FromEcho(c)
			if !ac.Authenticated() || !ac.ViaCookie() {
				return next(c)
			}

			csrfToken := c.Request().Header.Get(HeaderCSRFToken)
			if csrfToken == "" {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "CSRF token required",
				})
			}

			expected := ac.Session().CSRFToken
			if subtle.ConstantTimeCompare([]byte(csrfToken), []byte(expected)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "invalid CSRF token",
				})
			}

			return next(c)
		}
	}
}
