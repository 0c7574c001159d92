package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/config"
	"github.com/mkoval-dev/skycast/internal/middleware"
	"github.com/mkoval-dev/skycast/internal/model"
	"github.com/mkoval-dev/skycast/internal/queue"
	"github.com/mkoval-dev/skycast/internal/repository"
	queuepub "github.com/mkoval-dev/skycast/internal/service"
	"github.com/mkoval-dev/skycast/internal/utils"
)

// ProfileStore is the store slice the profile endpoints need. Satisfied by
// *repository.UserRepo; faked in tests.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, upd repository.ProfileUpdate) error
	Delete(ctx context.Context, id string) error
}

// ProfileHandler serves the authenticated user's own record.
type ProfileHandler struct {
	Cfg   config.Config
	Users ProfileStore
}

func NewProfileHandler(cfg config.Config, users ProfileStore) *ProfileHandler {
	return &ProfileHandler{Cfg: cfg, Users: users}
}

// userResp is the sanitized view of a user document: no password hash, no
// provider ids, no refresh tokens.
type userResp struct {
	ID         string            `json:"id"`
	Email      string            `json:"email,omitempty"`
	Name       string            `json:"name"`
	Surname    string            `json:"surname"`
	AvatarURL  string            `json:"avatar_url"`
	Favourites []model.Favourite `json:"favourites"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func toUserResp(u *model.User) userResp {
	favs := u.Favourites
	if favs == nil {
		favs = []model.Favourite{}
	}
	return userResp{
		ID:         u.ID.Hex(),
		Email:      u.Email,
		Name:       u.Name,
		Surname:    u.Surname,
		AvatarURL:  u.AvatarURL,
		Favourites: favs,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Me returns the caller's own profile.
func (h *ProfileHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

type updateMeReq struct {
	Name     *string `json:"name"`
	Surname  *string `json:"surname"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UpdateMe applies a partial profile update. The password is re-hashed only
// when the request actually carries one; updating the name must not touch
// the stored hash.
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email cannot be empty"})
	}
	if req.Password != nil && *req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password cannot be empty"})
	}

	upd := repository.ProfileUpdate{Name: req.Name, Surname: req.Surname, Email: req.Email}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
		}
		upd.PasswordHash = &hash
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := middleware.UserID(c)
	if err := h.Users.UpdateProfile(ctx, uid, upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// DeleteMe removes the account. The refresh-token list is embedded in the
// document, so deletion revokes every outstanding session at once.
func (h *ProfileHandler) DeleteMe(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := middleware.UserID(c)
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	if err := h.Users.Delete(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}

	_ = queuepub.PublishAccountEvent(ctx, h.Cfg.AMQPURL, queue.AccountEvent{
		Kind:       "deleted",
		UserID:     uid,
		Email:      u.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	clearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}
