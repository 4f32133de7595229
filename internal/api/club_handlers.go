package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"campushub-backend/internal/auth"
	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
	"campushub-backend/internal/uploads"
)

func clubImageURL(club *models.Club) {
	if club.HasImage() {
		club.ImageURL = "/api/clubs/" + club.ID + "/image"
	}
}

// listClubs handles GET /api/clubs
func (h *Handler) listClubsHandler(c echo.Context) error {
	clubs, err := h.clubs.List(c.Request().Context(), c.QueryParam("campus"))
	if err != nil {
		return h.internalError(c, "failed to list clubs", err)
	}
	for _, club := range clubs {
		clubImageURL(club)
	}
	return c.JSON(http.StatusOK, clubs)
}

func (h *Handler) lookupClub(c echo.Context) (*models.Club, error) {
	club, err := h.clubs.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrClubNotFound) {
			return nil, c.JSON(http.StatusNotFound, map[string]string{
				"error": "club not found",
			})
		}
		return nil, h.internalError(c, "failed to get club", err)
	}
	return club, nil
}

// getClub handles GET /api/clubs/:id
func (h *Handler) getClubHandler(c echo.Context) error {
	club, err := h.lookupClub(c)
	if club == nil {
		return err
	}
	clubImageURL(club)
	return c.JSON(http.StatusOK, club)
}

// getClubImage handles GET /api/clubs/:id/image
func (h *Handler) getClubImageHandler(c echo.Context) error {
	club, err := h.lookupClub(c)
	if club == nil {
		return err
	}
	if !club.HasImage() {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "club has no image",
		})
	}

	rc, err := h.uploads.Open(c.Request().Context(), club.ImageKey)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "image not found",
			})
		}
		return h.internalError(c, "failed to read image", err)
	}
	defer rc.Close()

	c.Response().Header().Set("X-Content-Type-Options", "nosniff")
	c.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	return c.Stream(http.StatusOK, club.ImageType, rc)
}

// readImage reads and validates the optional "image" form file. It returns
// nil data when no file was sent.
func (h *Handler) readImage(c echo.Context) (data []byte, contentType string, msg string) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", ""
		}
		return nil, "", "invalid image upload"
	}

	tooLarge := fmt.Sprintf("image too large (max %d MB)", h.opts.MaxImageBytes/(1024*1024))
	if file.Size > h.opts.MaxImageBytes {
		return nil, "", tooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", "failed to read uploaded file"
	}
	defer src.Close()

	data, err = io.ReadAll(io.LimitReader(src, h.opts.MaxImageBytes+1))
	if err != nil {
		return nil, "", "failed to read uploaded file"
	}
	if int64(len(data)) > h.opts.MaxImageBytes {
		return nil, "", tooLarge
	}

	contentType, err = uploads.SniffImage(data)
	if err != nil {
		return nil, "", "image must be JPEG, PNG, GIF or WebP"
	}
	return data, contentType, ""
}

// createClub handles POST /api/clubs (multipart form)
func (h *Handler) createClubHandler(c echo.Context) error {
	ctx := c.Request().Context()
	principal := auth.GetPrincipalFromContext(c)

	name := strings.TrimSpace(c.FormValue("name"))
	description := strings.TrimSpace(c.FormValue("description"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
	}
	if utf8.RuneCountInString(name) > maxTitleLength || utf8.RuneCountInString(description) > maxDescriptionLength {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "name or description too long",
		})
	}
	campus := strings.TrimSpace(c.FormValue("campus"))
	if campus == "" {
		campus = principal.Campus
	}

	data, contentType, msg := h.readImage(c)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": msg,
		})
	}

	club := &models.Club{
		ID:          uuid.NewString(),
		OwnerID:     principal.ID,
		Name:        name,
		Description: description,
		Campus:      campus,
	}

	if data != nil {
		key := uploads.NewKey("clubs")
		if err := h.uploads.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
			return h.internalError(c, "failed to store image", err)
		}
		club.ImageKey = key
		club.ImageType = contentType
	}

	if err := h.clubs.Create(ctx, club); err != nil {
		if club.HasImage() {
			_ = h.uploads.Delete(ctx, club.ImageKey)
		}
		return h.internalError(c, "failed to create club", err)
	}

	h.logAudit(c, models.ActionClubCreate, club.ID, map[string]any{
		"name":  club.Name,
		"image": club.HasImage(),
	})

	clubImageURL(club)
	return c.JSON(http.StatusCreated, club)
}
