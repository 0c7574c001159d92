package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval-dev/skycast/internal/config"
)

func cacheTestConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		TTL:          time.Minute,
		Prefix:       "wx",
		MaxBodyBytes: 1 << 20,
	}
}

func weatherCtx(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	// Routing resolves both cities to the same registered pattern.
	c.SetPath("/v1/weather/:city")
	return c
}

func TestCacheKeyDistinguishesCities(t *testing.T) {
	t.Parallel()
	cfg := cacheTestConfig()

	rome := cacheKey(cfg, weatherCtx("/v1/weather/Rome"))
	paris := cacheKey(cfg, weatherCtx("/v1/weather/Paris"))
	assert.NotEqual(t, rome, paris)

	// Same city twice maps to the same entry.
	assert.Equal(t, rome, cacheKey(cfg, weatherCtx("/v1/weather/Rome")))
}

func TestCacheKeyDistinguishesQueries(t *testing.T) {
	t.Parallel()
	cfg := cacheTestConfig()

	a := cacheKey(cfg, weatherCtx("/v1/weather?lat=41.9&lon=12.5"))
	b := cacheKey(cfg, weatherCtx("/v1/weather?lat=48.8&lon=2.3"))
	assert.NotEqual(t, a, b)
}

// cachedServer wires a counting weather handler behind the response cache so
// tests can tell a served-from-cache response from a recomputed one.
func cachedServer(t *testing.T, cfg config.CacheConfig, rdb *redis.Client) (*echo.Echo, *int) {
	t.Helper()
	var calls int
	e := echo.New()
	e.GET("/v1/weather/:city", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"city": c.Param("city"), "temp": 290.5})
	}, NewResponseCache(cfg, rdb))
	e.GET("/v1/weather-missing/:city", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "city not found"})
	}, NewResponseCache(cfg, rdb))
	return e, &calls
}

func miniRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestResponseCacheHitPerCity(t *testing.T) {
	t.Parallel()
	e, calls := cachedServer(t, cacheTestConfig(), miniRedisClient(t))

	first := get(e, "/v1/weather/Rome")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, 1, *calls)

	second := get(e, "/v1/weather/Rome")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, *calls)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// A different city is its own cache entry, never Rome's.
	paris := get(e, "/v1/weather/Paris")
	require.Equal(t, http.StatusOK, paris.Code)
	assert.Equal(t, "MISS", paris.Header().Get("X-Cache"))
	assert.Equal(t, 2, *calls)
	assert.Contains(t, paris.Body.String(), "Paris")
	assert.NotContains(t, paris.Body.String(), "Rome")
}

func TestResponseCacheSkipsNonOK(t *testing.T) {
	t.Parallel()
	e, calls := cachedServer(t, cacheTestConfig(), miniRedisClient(t))

	for i := 0; i < 2; i++ {
		rec := get(e, "/v1/weather-missing/Atlantis")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.NotEqual(t, "HIT", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, *calls)
}

func TestResponseCachePassThroughWithoutRedis(t *testing.T) {
	t.Parallel()
	e, calls := cachedServer(t, cacheTestConfig(), nil)

	for i := 0; i < 2; i++ {
		rec := get(e, "/v1/weather/Rome")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, *calls)
}

func TestResponseCacheDisabled(t *testing.T) {
	t.Parallel()
	cfg := cacheTestConfig()
	cfg.Enabled = false
	e, calls := cachedServer(t, cfg, miniRedisClient(t))

	for i := 0; i < 2; i++ {
		rec := get(e, "/v1/weather/Rome")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, *calls)
}
