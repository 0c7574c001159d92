package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/middleware"
	"github.com/mkoval-dev/skycast/internal/model"
	"github.com/mkoval-dev/skycast/internal/repository"
)

// FavouriteStore is the store slice behind the favourites sub-resource.
type FavouriteStore interface {
	ListFavourites(ctx context.Context, id string) ([]model.Favourite, error)
	AddFavourite(ctx context.Context, id, city string) error
	RemoveFavourite(ctx context.Context, id, city string) error
}

// FavouritesHandler manages the user's favourite cities.
type FavouritesHandler struct {
	Users FavouriteStore
}

func NewFavouritesHandler(users FavouriteStore) *FavouritesHandler {
	return &FavouritesHandler{Users: users}
}

type addFavouriteReq struct {
	City string `json:"city"`
}

// List returns all favourites of the caller.
func (h *FavouritesHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	favs, err := h.Users.ListFavourites(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load favourites failed"})
	}
	if favs == nil {
		favs = []model.Favourite{}
	}
	return c.JSON(http.StatusOK, favs)
}

// Add appends a favourite city. Duplicates are allowed.
func (h *FavouritesHandler) Add(c echo.Context) error {
	var req addFavouriteReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.City) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "city required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.AddFavourite(ctx, middleware.UserID(c), strings.TrimSpace(req.City)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add favourite failed"})
	}
	return c.NoContent(http.StatusCreated)
}

// Remove pulls every favourite matching the city path parameter. Removing a
// city that was never added is a successful no-op.
func (h *FavouritesHandler) Remove(c echo.Context) error {
	city := c.Param("city")
	if city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "city required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.RemoveFavourite(ctx, middleware.UserID(c), city); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove favourite failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
