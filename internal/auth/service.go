// Package auth implements the session lifecycle: local registration and
// login, refresh-token rotation, logout and federated (OAuth) logins. It
// talks to the credential store through the UserStore interface and carries
// the signing secret injected at construction.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkoval-dev/skycast/internal/model"
	"github.com/mkoval-dev/skycast/internal/repository"
	"github.com/mkoval-dev/skycast/internal/utils"
)

// Error taxonomy returned to the transport layer. Every failure path yields
// exactly one of these; nothing is logged and swallowed here.
var (
	// ErrInvalidCredentials covers both an unknown email and a password
	// mismatch, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateAccount means the email is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidSession means the refresh token is missing, expired,
	// revoked or carries a bad signature; the caller must force re-login.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionRotation is a transactional failure during rotation.
	ErrSessionRotation = errors.New("session rotation failed")
	// ErrNotFound is an operation on a missing user id.
	ErrNotFound = errors.New("user not found")
	// ErrStoreUnavailable is any persistence-layer failure; it is surfaced
	// immediately and never retried here.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// UserStore is the slice of the credential store the session core needs. The
// Mongo repository satisfies it; tests use an in-memory fake. Rotate must be
// an atomic conditional update: given the same old hash twice, it succeeds
// at most once.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByProvider(ctx context.Context, field, providerID string) (*model.User, error)
	Create(ctx context.Context, u *model.User) (string, error)
	SetProviderID(ctx context.Context, id, field, providerID string) error
	PushRefreshToken(ctx context.Context, id, tokenHash string, exp time.Time) error
	RotateRefreshToken(ctx context.Context, id, oldHash, newHash string, newExp time.Time) error
	PullRefreshToken(ctx context.Context, id, tokenHash string) error
	ClearRefreshTokens(ctx context.Context, id string) error
}

// TokenPair is what a successful login, refresh or OAuth exchange returns.
// The access token is stateless; the refresh token's hash has already been
// persisted when a pair is handed out.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Service orchestrates the session state machine.
type Service struct {
	store          UserStore
	secret         string
	accessTTLMin   int
	refreshTTLDays int
	bcryptCost     int
	defaultAvatar  string
}

func NewService(store UserStore, secret string, accessTTLMin, refreshTTLDays, bcryptCost int, defaultAvatar string) *Service {
	return &Service{
		store:          store,
		secret:         secret,
		accessTTLMin:   accessTTLMin,
		refreshTTLDays: refreshTTLDays,
		bcryptCost:     bcryptCost,
		defaultAvatar:  defaultAvatar,
	}
}

// Register creates a local account and returns the new user id. It does not
// issue tokens; clients log in separately.
func (s *Service) Register(ctx context.Context, email, password, name, surname string) (string, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", err
	}
	id, err := s.store.Create(ctx, &model.User{
		Email:        email,
		Name:         name,
		Surname:      surname,
		PasswordHash: hash,
		AvatarURL:    s.defaultAvatar,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return "", ErrDuplicateAccount
		}
		return "", storeErr(err)
	}
	return id, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, TokenPair, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, storeErr(err)
	}
	// OAuth-only accounts have no hash; VerifyPassword fails closed.
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, u.ID.Hex())
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented token is atomically replaced
// by a new one, and a new access token is minted. Presenting the same token a
// second time fails with ErrInvalidSession.
func (s *Service) Refresh(ctx context.Context, raw string) (string, TokenPair, error) {
	uid, err := utils.ParseToken(s.secret, raw)
	if err != nil {
		return "", TokenPair{}, ErrInvalidSession
	}

	// Mint both tokens before touching the store so there is no failure
	// mode after the old token has been consumed.
	access, err := utils.NewAccessToken(s.secret, uid, s.accessTTLMin)
	if err != nil {
		return "", TokenPair{}, fmt.Errorf("%w: %v", ErrSessionRotation, err)
	}
	refresh, err := utils.NewRefreshToken(s.secret, uid, s.refreshTTLDays)
	if err != nil {
		return "", TokenPair{}, fmt.Errorf("%w: %v", ErrSessionRotation, err)
	}

	oldHash := utils.HashRefreshRaw(raw)
	newHash := utils.HashRefreshRaw(refresh.Raw)
	if err := s.store.RotateRefreshToken(ctx, uid, oldHash, newHash, refresh.Exp); err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound), errors.Is(err, repository.ErrNotFound):
			// Already rotated, revoked, or the user is gone.
			return "", TokenPair{}, ErrInvalidSession
		default:
			return "", TokenPair{}, fmt.Errorf("%w: %v", ErrSessionRotation, err)
		}
	}
	return uid, TokenPair{Access: access, Refresh: refresh}, nil
}

// Logout revokes the presented refresh token. Revoking a token that is
// already gone is not an error.
func (s *Service) Logout(ctx context.Context, raw string) error {
	uid, err := utils.ParseToken(s.secret, raw)
	if err != nil {
		return ErrInvalidSession
	}
	if err := s.store.PullRefreshToken(ctx, uid, utils.HashRefreshRaw(raw)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return storeErr(err)
	}
	return nil
}

// LogoutAll clears the user's whole refresh-token list ("logout everywhere").
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.store.ClearRefreshTokens(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr(err)
	}
	return nil
}

// issuePair mints an access/refresh pair and persists the refresh hash.
func (s *Service) issuePair(ctx context.Context, userID string) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.secret, userID, s.accessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.secret, userID, s.refreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.PushRefreshToken(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, storeErr(err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
