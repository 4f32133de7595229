package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"campushub-backend/internal/auth"
)

// listActivity handles GET /api/auth/activity, the principal's own audit trail
func (h *Handler) listActivityHandler(c echo.Context) error {
	principal := auth.GetPrincipalFromContext(c)

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	logs, err := h.audit.ListByUser(c.Request().Context(), principal.ID, limit)
	if err != nil {
		return h.internalError(c, "failed to list activity", err)
	}

	return c.JSON(http.StatusOK, logs)
}
