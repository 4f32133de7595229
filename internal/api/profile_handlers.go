package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"campushub-backend/internal/auth"
	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
)

const maxBioLength = 2000

// getProfile handles GET /api/profile
func (h *Handler) getProfileHandler(c echo.Context) error {
	principal := auth.GetPrincipalFromContext(c)

	profile, err := h.profiles.Get(c.Request().Context(), principal.ID)
	if err != nil {
		return h.internalError(c, "failed to get profile", err)
	}

	return c.JSON(http.StatusOK, models.ProfileView{
		Principal: principal,
		Profile:   profile,
	})
}

// trimmedOr returns the trimmed value of s, or fallback when s is nil
func trimmedOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return strings.TrimSpace(*s)
}

// updateProfile handles PUT /api/profile. Only the session principal's own
// record is ever written.
func (h *Handler) updateProfileHandler(c echo.Context) error {
	ctx := c.Request().Context()
	principal := auth.GetPrincipalFromContext(c)

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	firstName := trimmedOr(req.FirstName, principal.FirstName)
	lastName := trimmedOr(req.LastName, principal.LastName)
	campus := trimmedOr(req.Campus, principal.Campus)
	if firstName == "" || lastName == "" || campus == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "firstname, lastname and campus cannot be empty",
		})
	}

	profile, err := h.profiles.Get(ctx, principal.ID)
	if err != nil {
		return h.internalError(c, "failed to get profile", err)
	}
	profile.Bio = trimmedOr(req.Bio, profile.Bio)
	profile.Major = trimmedOr(req.Major, profile.Major)
	if req.GraduationYear != nil {
		profile.GraduationYear = *req.GraduationYear
	}
	if utf8.RuneCountInString(profile.Bio) > maxBioLength {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "bio too long",
		})
	}
	if profile.GraduationYear != 0 && (profile.GraduationYear < 1900 || profile.GraduationYear > 2200) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid graduation year",
		})
	}

	if firstName != principal.FirstName || lastName != principal.LastName || campus != principal.Campus {
		principal, err = h.credentials.UpdateIdentity(ctx, principal.ID, firstName, lastName, campus)
		if err != nil {
			return h.internalError(c, "failed to update profile", err)
		}
	}
	if err := h.profiles.Upsert(ctx, profile); err != nil {
		return h.internalError(c, "failed to update profile", err)
	}

	h.logAudit(c, models.ActionProfileUpdate, principal.Username, nil)

	return c.JSON(http.StatusOK, models.ProfileView{
		Principal: principal,
		Profile:   profile,
	})
}

// getPublicProfile handles GET /api/profiles/:username
func (h *Handler) getPublicProfileHandler(c echo.Context) error {
	ctx := c.Request().Context()

	principal, err := h.credentials.LookupByUsername(ctx, c.Param("username"))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "user not found",
			})
		}
		return h.internalError(c, "failed to get profile", err)
	}

	profile, err := h.profiles.Get(ctx, principal.ID)
	if err != nil {
		return h.internalError(c, "failed to get profile", err)
	}

	return c.JSON(http.StatusOK, models.PublicProfile{
		Username:       principal.Username,
		FirstName:      principal.FirstName,
		LastName:       principal.LastName,
		Campus:         principal.Campus,
		Bio:            profile.Bio,
		Major:          profile.Major,
		GraduationYear: profile.GraduationYear,
	})
}
