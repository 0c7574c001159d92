package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/middleware"
	"github.com/mkoval-dev/skycast/internal/repository"
)

// maxAvatarBytes caps avatar uploads at 5 MiB before they reach the object
// store.
const maxAvatarBytes = 5 << 20

// AvatarUploader is the object-store slice the avatar endpoint needs.
type AvatarUploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// AvatarSaver persists the uploaded image's URL on the user record.
type AvatarSaver interface {
	SetAvatarURL(ctx context.Context, id, url string) error
}

// AvatarHandler accepts a multipart image, delegates storage to the image
// host and records the returned URL.
type AvatarHandler struct {
	Store AvatarUploader
	Users AvatarSaver
}

func NewAvatarHandler(store AvatarUploader, users AvatarSaver) *AvatarHandler {
	return &AvatarHandler{Store: store, Users: users}
}

// Upload handles POST /v1/users/me/avatar with a multipart "image" field.
func (h *AvatarHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image field required"})
	}
	if fh.Size > maxAvatarBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "image too large"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable image"})
	}
	defer src.Close()

	ctx := c.Request().Context()
	url, err := h.Store.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), src)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "image upload failed"})
	}

	if err := h.Users.SetAvatarURL(ctx, middleware.UserID(c), url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save avatar failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"avatar_url": url})
}
