package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval-dev/skycast/internal/config"
)

func TestParseProvider(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"spotify", "Google", "FACEBOOK"} {
		p, err := ParseProvider(s)
		require.NoError(t, err, s)
		assert.NotEmpty(t, p.storeField())
	}

	_, err := ParseProvider("github")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestOAuthConfigEndpoints(t *testing.T) {
	t.Parallel()

	creds := config.OAuthProvider{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/v1/auth/spotify/callback",
	}

	for _, p := range []Provider{Spotify, Google, Facebook} {
		cfg := OAuthConfig(p, creds)
		assert.Equal(t, "id", cfg.ClientID)
		assert.NotEmpty(t, cfg.Endpoint.AuthURL, p)
		assert.NotEmpty(t, cfg.Endpoint.TokenURL, p)
		assert.NotEmpty(t, cfg.Scopes, p)
	}
}
