package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/auth"
	"github.com/mkoval-dev/skycast/internal/config"
	"github.com/mkoval-dev/skycast/internal/middleware"
	"github.com/mkoval-dev/skycast/internal/queue"
	queuepub "github.com/mkoval-dev/skycast/internal/service"
)

// RefreshCookiePath scopes the refresh cookie to the one endpoint that needs
// it, so the long-lived token never rides along on other requests.
const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/v1/auth/refresh"
)

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Sessions *auth.Service
}

func NewAuthHandler(cfg config.Config, s *auth.Service) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Sessions: s}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	UserID  string    `json:"user_id"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates the account only; no tokens are issued. The client is
// expected to call login next.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Sessions.Register(ctx, req.Email, req.Password, req.Name, req.Surname)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateAccount) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// Best-effort audit event; registration already succeeded.
	_ = queuepub.PublishAccountEvent(ctx, h.Cfg.AMQPURL, queue.AccountEvent{
		Kind:       "registered",
		UserID:     id,
		Email:      req.Email,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{"user_id": id})
}

// Login verifies credentials and delivers the pair both as JSON and as
// scoped HttpOnly cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, pair, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, authResp{
		UserID:  u.ID.Hex(),
		Access:  tokenPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
		Refresh: tokenPart{Token: pair.Refresh.Raw, Expires: pair.Refresh.Exp},
	})
}

// Refresh rotates the refresh token. The old token comes from the scoped
// cookie or, for non-browser clients, the JSON body. A token that was
// already used, revoked or expired gets 401 and the client must re-login.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, pair, err := h.Sessions.Refresh(ctx, raw)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			clearAuthCookies(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, authResp{
		UserID:  uid,
		Access:  tokenPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
		Refresh: tokenPart{Token: pair.Refresh.Raw, Expires: pair.Refresh.Exp},
	})
}

// Logout revokes the presented refresh token and drops both cookies.
// Revoking an already-absent token still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sessions.Logout(ctx, raw); err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			clearAuthCookies(c)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	clearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll clears every refresh token of the authenticated user (protected
// route; identity comes from the access token, not from a refresh token).
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid := middleware.UserID(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sessions.LogoutAll(ctx, uid); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	clearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}

// ----- helpers shared by auth and oauth handlers -----

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func refreshTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(RefreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

func setAuthCookies(c echo.Context, pair auth.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookieName,
		Value:    pair.Access.Token,
		Path:     "/",
		Expires:  pair.Access.Exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.Refresh.Raw,
		Path:     RefreshCookiePath,
		Expires:  pair.Refresh.Exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAuthCookies(c echo.Context) {
	c.SetCookie(&http.Cookie{Name: middleware.AccessCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	c.SetCookie(&http.Cookie{Name: RefreshCookieName, Value: "", Path: RefreshCookiePath, MaxAge: -1, HttpOnly: true})
}

// frontendRedirect builds the post-OAuth redirect target. Anything that is
// not an absolute http(s) URL falls back to the server root rather than
// becoming an open redirect to a scheme-relative or garbage location.
func frontendRedirect(cfg config.Config) string {
	u, err := url.Parse(cfg.FrontendURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "/"
	}
	return cfg.FrontendURL
}
