package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkoval-dev/skycast/internal/weather"
)

// WeatherFetcher is the upstream slice the proxy needs; satisfied by
// *weather.Client and faked in tests.
type WeatherFetcher interface {
	ByCity(ctx context.Context, city string) ([]byte, error)
	ByCoords(ctx context.Context, lat, lon string) ([]byte, error)
}

// WeatherHandler proxies current-weather lookups for authenticated users.
// The upstream JSON is passed through untouched.
type WeatherHandler struct {
	API WeatherFetcher
}

func NewWeatherHandler(api WeatherFetcher) *WeatherHandler {
	return &WeatherHandler{API: api}
}

// ByCity handles GET /v1/weather/:city.
func (h *WeatherHandler) ByCity(c echo.Context) error {
	city := c.Param("city")
	if city == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "city required"})
	}
	body, err := h.API.ByCity(c.Request().Context(), city)
	if err != nil {
		return weatherErr(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// ByCoords handles GET /v1/weather?lat=&lon=.
func (h *WeatherHandler) ByCoords(c echo.Context) error {
	lat, lon := c.QueryParam("lat"), c.QueryParam("lon")
	if lat == "" || lon == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat/lon required"})
	}
	body, err := h.API.ByCoords(c.Request().Context(), lat, lon)
	if err != nil {
		return weatherErr(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

func weatherErr(c echo.Context, err error) error {
	if errors.Is(err, weather.ErrCityNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "city not found"})
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "weather upstream failed"})
}
