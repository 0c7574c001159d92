package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/auth"
	"github.com/mkoval-dev/skycast/internal/config"
	"github.com/mkoval-dev/skycast/internal/database"
	"github.com/mkoval-dev/skycast/internal/handler"
	"github.com/mkoval-dev/skycast/internal/queue"
	"github.com/mkoval-dev/skycast/internal/repository"
	"github.com/mkoval-dev/skycast/internal/router"
	"github.com/mkoval-dev/skycast/internal/storage"
	"github.com/mkoval-dev/skycast/internal/weather"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}

	users := repository.NewUserRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Fatalf("mongo indexes: %v", err)
	}
	cancel()

	sessions := auth.NewService(users, cfg.JWTSecret,
		cfg.AccessTTLMin, cfg.RefreshTTLDays, cfg.BcryptCost, cfg.Avatar.DefaultURL)

	avatars, err := storage.NewAvatarStore(cfg.Avatar)
	if err != nil {
		log.Fatalf("avatar storage: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and weather cache disabled")
	}

	// Audit-log consumer; reconnects forever in the background.
	go queue.StartAccountConsumer(cfg.AMQPURL)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, sessions),
		OAuth:      handler.NewOAuthHandler(cfg, sessions),
		Profile:    handler.NewProfileHandler(cfg, users),
		Favourites: handler.NewFavouritesHandler(users),
		Avatar:     handler.NewAvatarHandler(avatars, users),
		Weather:    handler.NewWeatherHandler(weather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL)),
	}, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
