// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. The JWT secret is injected from here into the token
// helpers at construction time; nothing reads it from the environment later.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	MongoURI       string // MongoDB connection string
	MongoDB        string // MongoDB database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	FrontendURL    string // where OAuth callbacks redirect the browser

	WeatherAPIKey  string // openweathermap API key
	WeatherBaseURL string // override for tests; empty means the real API

	Avatar  AvatarConfig
	OAuth   OAuthConfig
	AMQPURL string // RabbitMQ connection string (empty disables events)
}

// AvatarConfig configures the S3-compatible object store that holds avatar
// uploads.
type AvatarConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	DefaultURL string // avatar assigned to new accounts
}

// OAuthProvider carries the client credentials for one federated provider.
// A provider with an empty ClientID is considered disabled.
type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type OAuthConfig struct {
	Spotify  OAuthProvider
	Google   OAuthProvider
	Facebook OAuthProvider
}

// Load reads configuration from the environment, loading a .env file first
// when one is present. Required variables are enforced by must(); missing
// values abort startup.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		MongoURI:       must("MONGO_URI"),
		MongoDB:        must("MONGO_DB"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		FrontendURL:    getenv("FRONTEND_URL", "http://localhost:3000/"),
		WeatherAPIKey:  must("WEATHER_API_KEY"),
		WeatherBaseURL: os.Getenv("WEATHER_BASE_URL"),
		Avatar: AvatarConfig{
			Endpoint:   must("S3_ENDPOINT"),
			AccessKey:  must("S3_ACCESS_KEY_ID"),
			SecretKey:  must("S3_SECRET_ACCESS_KEY"),
			Bucket:     must("S3_BUCKET"),
			Region:     getenv("S3_REGION", "us-east-1"),
			UseSSL:     envBool("S3_USE_SSL", false),
			DefaultURL: getenv("AVATAR_DEFAULT_URL", ""),
		},
		OAuth: OAuthConfig{
			Spotify:  provider("SPOTIFY"),
			Google:   provider("GOOGLE"),
			Facebook: provider("FACEBOOK"),
		},
		AMQPURL: os.Getenv("RABBITMQ_URL"),
	}
}

func provider(prefix string) OAuthProvider {
	return OAuthProvider{
		ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
		RedirectURL:  os.Getenv(prefix + "_REDIRECT_URL"),
	}
}

// must retrieves a required environment variable or aborts startup.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}
