package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/spotify"

	"github.com/mkoval-dev/skycast/internal/config"
	"github.com/mkoval-dev/skycast/internal/model"
	"github.com/mkoval-dev/skycast/internal/repository"
)

// Provider is the tagged variant over supported OAuth providers.
type Provider string

const (
	Spotify  Provider = "spotify"
	Google   Provider = "google"
	Facebook Provider = "facebook"
)

// ErrUnknownProvider is returned for a provider name outside the supported set.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// ParseProvider maps a path parameter onto a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(s)) {
	case Spotify:
		return Spotify, nil
	case Google:
		return Google, nil
	case Facebook:
		return Facebook, nil
	}
	return "", ErrUnknownProvider
}

// storeField returns the user-document field holding this provider's id.
func (p Provider) storeField() string {
	switch p {
	case Spotify:
		return "spotify_id"
	case Google:
		return "google_id"
	case Facebook:
		return "facebook_id"
	}
	return ""
}

// OAuthConfig builds the oauth2.Config for a provider from its credentials.
// Scopes match what the profile fetch below needs: a stable user id plus the
// email and display name when the provider is willing to share them.
func OAuthConfig(p Provider, creds config.OAuthProvider) *oauth2.Config {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURL,
	}
	switch p {
	case Spotify:
		cfg.Endpoint = spotify.Endpoint
		cfg.Scopes = []string{"user-read-email", "user-read-private"}
	case Google:
		cfg.Endpoint = google.Endpoint
		cfg.Scopes = []string{"profile", "email"}
	case Facebook:
		cfg.Endpoint = facebook.Endpoint
		cfg.Scopes = []string{"public_profile", "email"}
	}
	return cfg
}

// Profile is the verified callback payload handed to ExchangeCallback: the
// provider-scoped user id plus whatever profile fields the provider shared.
// Email may be empty; providers are allowed to withhold it.
type Profile struct {
	ProviderUserID string
	Email          string
	Name           string
	Surname        string
}

// FetchProfile loads the user's profile from the provider API using the
// token-bound HTTP client produced by the oauth2 exchange.
func FetchProfile(ctx context.Context, p Provider, client *http.Client) (Profile, error) {
	var url string
	switch p {
	case Spotify:
		url = "https://api.spotify.com/v1/me"
	case Google:
		url = "https://www.googleapis.com/oauth2/v2/userinfo"
	case Facebook:
		url = "https://graph.facebook.com/me?fields=id,name,email"
	default:
		return Profile{}, ErrUnknownProvider
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch %s profile: %w", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("fetch %s profile: unexpected status %s", p, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Profile{}, err
	}

	switch p {
	case Spotify:
		var v struct {
			ID          string `json:"id"`
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return Profile{}, err
		}
		return Profile{ProviderUserID: v.ID, Email: v.Email, Name: v.DisplayName}, nil
	case Google:
		var v struct {
			ID         string `json:"id"`
			Email      string `json:"email"`
			GivenName  string `json:"given_name"`
			FamilyName string `json:"family_name"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return Profile{}, err
		}
		return Profile{ProviderUserID: v.ID, Email: v.Email, Name: v.GivenName, Surname: v.FamilyName}, nil
	default: // Facebook
		var v struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return Profile{}, err
		}
		return Profile{ProviderUserID: v.ID, Email: v.Email, Name: v.Name}, nil
	}
}

// ExchangeCallback maps a verified OAuth callback onto a local account and
// issues a token pair exactly like Login, without a password check.
//
// Lookup order: provider id, then email (linking the provider id onto the
// existing local account — the provider has verified control of that
// address), then create a fresh account with no local password.
func (s *Service) ExchangeCallback(ctx context.Context, p Provider, profile Profile) (*model.User, TokenPair, error) {
	field := p.storeField()
	if field == "" || profile.ProviderUserID == "" {
		return nil, TokenPair{}, ErrUnknownProvider
	}

	u, err := s.store.GetByProvider(ctx, field, profile.ProviderUserID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		u, err = s.linkOrCreate(ctx, field, profile)
		if err != nil {
			return nil, TokenPair{}, err
		}
	default:
		return nil, TokenPair{}, storeErr(err)
	}

	pair, err := s.issuePair(ctx, u.ID.Hex())
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *Service) linkOrCreate(ctx context.Context, field string, profile Profile) (*model.User, error) {
	if profile.Email != "" {
		u, err := s.store.GetByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			if err := s.store.SetProviderID(ctx, u.ID.Hex(), field, profile.ProviderUserID); err != nil {
				return nil, storeErr(err)
			}
			return u, nil
		case errors.Is(err, repository.ErrNotFound):
			// fall through to create
		default:
			return nil, storeErr(err)
		}
	}

	id, err := s.store.Create(ctx, &model.User{
		Email:     profile.Email,
		Name:      profile.Name,
		Surname:   profile.Surname,
		AvatarURL: s.defaultAvatar,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// raced with a concurrent registration for the same email
			return nil, ErrDuplicateAccount
		}
		return nil, storeErr(err)
	}
	if err := s.store.SetProviderID(ctx, id, field, profile.ProviderUserID); err != nil {
		return nil, storeErr(err)
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}
