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

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxTags              = 10
	maxTagLength         = 32
)

// listProjects handles GET /api/projects
func (h *Handler) listProjectsHandler(c echo.Context) error {
	projects, err := h.projects.List(c.Request().Context(), c.QueryParam("campus"))
	if err != nil {
		return h.internalError(c, "failed to list projects", err)
	}
	return c.JSON(http.StatusOK, projects)
}

// getProject handles GET /api/projects/:id
func (h *Handler) getProjectHandler(c echo.Context) error {
	project, err := h.projects.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrProjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "project not found",
			})
		}
		return h.internalError(c, "failed to get project", err)
	}
	return c.JSON(http.StatusOK, project)
}

// listOwnProjects handles GET /api/profile/projects
func (h *Handler) listOwnProjectsHandler(c echo.Context) error {
	principal := auth.GetPrincipalFromContext(c)

	projects, err := h.projects.ListByOwner(c.Request().Context(), principal.ID)
	if err != nil {
		return h.internalError(c, "failed to list projects", err)
	}
	return c.JSON(http.StatusOK, projects)
}

// normalizeTags trims, lowercases and deduplicates tags, dropping empty ones
func normalizeTags(tags []string) ([]string, bool) {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLength {
			return nil, false
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out, len(out) <= maxTags
}

// createProject handles POST /api/projects. The owner is always the
// session principal.
func (h *Handler) createProjectHandler(c echo.Context) error {
	principal := auth.GetPrincipalFromContext(c)

	var req models.CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "title is required",
		})
	}
	if utf8.RuneCountInString(title) > maxTitleLength || utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "title or description too long",
		})
	}
	tags, ok := normalizeTags(req.Tags)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "too many or too long tags",
		})
	}

	project := &models.Project{
		OwnerID:     principal.ID,
		OwnerName:   principal.Username,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Tags:        tags,
		Contact:     strings.TrimSpace(req.Contact),
		Campus:      principal.Campus,
	}
	if err := h.projects.Create(c.Request().Context(), project); err != nil {
		return h.internalError(c, "failed to create project", err)
	}

	h.logAudit(c, models.ActionProjectCreate, project.ID, map[string]any{
		"title": project.Title,
	})

	return c.JSON(http.StatusCreated, project)
}

// deleteProject handles DELETE /api/projects/:id
func (h *Handler) deleteProjectHandler(c echo.Context) error {
	ctx := c.Request().Context()
	principal := auth.GetPrincipalFromContext(c)
	id := c.Param("id")

	project, err := h.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrProjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "project not found",
			})
		}
		return h.internalError(c, "failed to get project", err)
	}
	if project.OwnerID != principal.ID {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "you can only delete your own projects",
		})
	}

	if err := h.projects.DeleteOwned(ctx, id, principal.ID); err != nil {
		if errors.Is(err, database.ErrProjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "project not found",
			})
		}
		return h.internalError(c, "failed to delete project", err)
	}

	h.logAudit(c, models.ActionProjectDelete, id, nil)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "project deleted",
	})
}
