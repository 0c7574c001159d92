// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mkoval-dev/skycast/internal/config"
	"github.com/mkoval-dev/skycast/internal/handler"
	"github.com/mkoval-dev/skycast/internal/middleware"
)

// Handlers collects everything the router needs to register.
type Handlers struct {
	Auth       *handler.AuthHandler
	OAuth      *handler.OAuthHandler
	Profile    *handler.ProfileHandler
	Favourites *handler.FavouritesHandler
	Avatar     *handler.AvatarHandler
	Weather    *handler.WeatherHandler
}

// Register sets up all routes. Unauthenticated session operations live under
// /v1/auth behind the rate limiter; everything else under /v1 requires a
// valid access token. The weather routes additionally sit behind the Redis
// response cache.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/auth", rl)
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	// The refresh cookie is path-scoped to exactly this route.
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)
	g.GET("/:provider/login", h.OAuth.Login)
	g.GET("/:provider/callback", h.OAuth.Callback)

	authed := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	authed.POST("/auth/logout-all", h.Auth.LogoutAll)

	authed.GET("/users/me", h.Profile.Me)
	authed.PUT("/users/me", h.Profile.UpdateMe)
	authed.DELETE("/users/me", h.Profile.DeleteMe)
	authed.POST("/users/me/avatar", h.Avatar.Upload)

	authed.GET("/users/me/favourites", h.Favourites.List)
	authed.POST("/users/me/favourites", h.Favourites.Add)
	authed.DELETE("/users/me/favourites/:city", h.Favourites.Remove)

	wxCache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	authed.GET("/weather", h.Weather.ByCoords, wxCache)
	authed.GET("/weather/:city", h.Weather.ByCity, wxCache)
}
