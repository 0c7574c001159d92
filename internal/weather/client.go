// Package weather is a thin pass-through client for the openweathermap API.
// Responses are returned verbatim so the frontend sees exactly what the
// upstream sends; no retries or backoff, any failure surfaces immediately.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// ErrCityNotFound is returned when the upstream answers 404 for a city query.
var ErrCityNotFound = errors.New("city not found")

// Client queries the upstream weather API with a server-held key.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient builds a weather client. baseURL overrides the real API in tests;
// pass "" for production.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ByCity fetches current weather for a city name.
func (c *Client) ByCity(ctx context.Context, city string) ([]byte, error) {
	q := url.Values{}
	q.Set("q", city)
	return c.get(ctx, q)
}

// ByCoords fetches current weather for a lat/lon pair.
func (c *Client) ByCoords(ctx context.Context, lat, lon string) ([]byte, error) {
	q := url.Values{}
	q.Set("lat", lat)
	q.Set("lon", lon)
	return c.get(ctx, q)
}

func (c *Client) get(ctx context.Context, q url.Values) ([]byte, error) {
	q.Set("appid", c.apiKey)
	u := fmt.Sprintf("%s/weather?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather upstream: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, ErrCityNotFound
	default:
		return nil, fmt.Errorf("weather upstream: unexpected status %s", resp.Status)
	}
}
