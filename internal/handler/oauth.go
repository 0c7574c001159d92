package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/auth"
	"github.com/mkoval-dev/skycast/internal/config"
	"github.com/mkoval-dev/skycast/internal/queue"
	queuepub "github.com/mkoval-dev/skycast/internal/service"
)

const stateCookieName = "oauthState"

// OAuthHandler drives the browser-facing half of federated logins: the
// redirect to the provider and the callback that exchanges the code, loads
// the profile and turns it into a local session.
type OAuthHandler struct {
	Cfg      config.Config
	Sessions *auth.Service
}

func NewOAuthHandler(cfg config.Config, s *auth.Service) *OAuthHandler {
	return &OAuthHandler{Cfg: cfg, Sessions: s}
}

func (h *OAuthHandler) providerCreds(p auth.Provider) config.OAuthProvider {
	switch p {
	case auth.Spotify:
		return h.Cfg.OAuth.Spotify
	case auth.Google:
		return h.Cfg.OAuth.Google
	default:
		return h.Cfg.OAuth.Facebook
	}
}

// Login redirects the browser to the provider's consent page. A random state
// value is stored in a short-lived cookie and checked on the way back.
func (h *OAuthHandler) Login(c echo.Context) error {
	p, err := auth.ParseProvider(c.Param("provider"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}
	creds := h.providerCreds(p)
	if creds.ClientID == "" {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "provider not configured"})
	}

	state := randomState()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	url := auth.OAuthConfig(p, creds).AuthCodeURL(state)
	return c.Redirect(http.StatusSeeOther, url)
}

// Callback finishes the handshake: state check, code exchange, profile fetch
// with the token-bound client, then the same cookie delivery as a local
// login followed by a redirect to the frontend.
func (h *OAuthHandler) Callback(c echo.Context) error {
	p, err := auth.ParseProvider(c.Param("provider"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}

	// The state value is single-use: expire the cookie as soon as it has
	// been compared, whatever the outcome.
	ck, err := c.Cookie(stateCookieName)
	clearStateCookie(c)
	if err != nil || ck == nil || ck.Value == "" || ck.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code missing"})
	}

	ctx := c.Request().Context()
	oc := auth.OAuthConfig(p, h.providerCreds(p))
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "code exchange failed"})
	}
	profile, err := auth.FetchProfile(ctx, p, oc.Client(ctx, tok))
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "profile fetch failed"})
	}

	u, pair, err := h.Sessions.ExchangeCallback(ctx, p, profile)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "federated login failed"})
	}

	// New accounts created through this path show up in the audit log too.
	_ = queuepub.PublishAccountEvent(ctx, h.Cfg.AMQPURL, queue.AccountEvent{
		Kind:       "oauth_login",
		UserID:     u.ID.Hex(),
		Email:      u.Email,
		Provider:   string(p),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	setAuthCookies(c, pair)
	return c.Redirect(http.StatusSeeOther, frontendRedirect(h.Cfg))
}

func clearStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
