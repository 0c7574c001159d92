package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval-dev/skycast/internal/config"
)

func oauthTestHandler() *OAuthHandler {
	cfg := config.Config{
		FrontendURL: "http://localhost:3000/",
		OAuth: config.OAuthConfig{
			Spotify: config.OAuthProvider{
				ClientID:     "spotify-id",
				ClientSecret: "spotify-secret",
				RedirectURL:  "http://localhost:8080/v1/auth/spotify/callback",
			},
		},
	}
	return NewOAuthHandler(cfg, nil)
}

func oauthRoutes(h *OAuthHandler) *echo.Echo {
	e := echo.New()
	e.GET("/v1/auth/:provider/login", h.Login)
	e.GET("/v1/auth/:provider/callback", h.Callback)
	return e
}

func TestOAuthLoginRedirectsWithState(t *testing.T) {
	t.Parallel()
	e := oauthRoutes(oauthTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/spotify/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", loc.Host)
	assert.Equal(t, "spotify-id", loc.Query().Get("client_id"))

	state := cookieByName(rec.Result().Cookies(), stateCookieName)
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Value)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
}

func TestOAuthLoginUnknownProvider(t *testing.T) {
	t.Parallel()
	e := oauthRoutes(oauthTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/github/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthLoginUnconfiguredProvider(t *testing.T) {
	t.Parallel()
	e := oauthRoutes(oauthTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/google/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestOAuthCallbackStateMismatchExpiresStateCookie(t *testing.T) {
	t.Parallel()
	e := oauthRoutes(oauthTestHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/spotify/callback?state=tampered&code=c", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "issued"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The state value is single-use; the cookie must not survive the
	// callback even when the check fails.
	cleared := cookieByName(rec.Result().Cookies(), stateCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Empty(t, cleared.Value)
}

func TestFrontendRedirect(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		raw  string
		want string
	}{
		{"http://localhost:3000/", "http://localhost:3000/"},
		{"https://skycast.example/app", "https://skycast.example/app"},
		{"javascript:alert(1)", "/"},
		{"//evil.example/phish", "/"},
		{"not a url", "/"},
		{"", "/"},
	} {
		got := frontendRedirect(config.Config{FrontendURL: tc.raw})
		assert.Equal(t, tc.want, got, tc.raw)
	}
}
