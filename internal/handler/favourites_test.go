package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoval-dev/skycast/internal/model"
	"github.com/mkoval-dev/skycast/internal/repository"
)

// fakeFavStore keeps favourites per user id in memory.
type fakeFavStore struct {
	favs map[string][]model.Favourite
}

func newFakeFavStore() *fakeFavStore {
	return &fakeFavStore{favs: map[string][]model.Favourite{"u1": {}}}
}

func (f *fakeFavStore) ListFavourites(_ context.Context, id string) ([]model.Favourite, error) {
	favs, ok := f.favs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return favs, nil
}

func (f *fakeFavStore) AddFavourite(_ context.Context, id, city string) error {
	if _, ok := f.favs[id]; !ok {
		return repository.ErrNotFound
	}
	f.favs[id] = append(f.favs[id], model.Favourite{City: city})
	return nil
}

func (f *fakeFavStore) RemoveFavourite(_ context.Context, id, city string) error {
	favs, ok := f.favs[id]
	if !ok {
		return repository.ErrNotFound
	}
	out := favs[:0]
	for _, fv := range favs {
		if fv.City != city {
			out = append(out, fv)
		}
	}
	f.favs[id] = out
	return nil
}

func favCtx(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")
	return c, rec
}

func TestFavouritesAddListRemove(t *testing.T) {
	t.Parallel()
	store := newFakeFavStore()
	h := NewFavouritesHandler(store)

	c, rec := favCtx(t, http.MethodPost, "/v1/users/me/favourites", `{"city":"Rome"}`)
	require.NoError(t, h.Add(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = favCtx(t, http.MethodGet, "/v1/users/me/favourites", "")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	var favs []model.Favourite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "Rome", favs[0].City)

	c, rec = favCtx(t, http.MethodDelete, "/v1/users/me/favourites/Rome", "")
	c.SetParamNames("city")
	c.SetParamValues("Rome")
	require.NoError(t, h.Remove(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.favs["u1"])
}

func TestFavouritesRemoveAbsentCityIsNoOp(t *testing.T) {
	t.Parallel()
	h := NewFavouritesHandler(newFakeFavStore())

	c, rec := favCtx(t, http.MethodDelete, "/v1/users/me/favourites/Nowhere", "")
	c.SetParamNames("city")
	c.SetParamValues("Nowhere")
	require.NoError(t, h.Remove(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestFavouritesDuplicatesAllowed(t *testing.T) {
	t.Parallel()
	store := newFakeFavStore()
	h := NewFavouritesHandler(store)

	for i := 0; i < 2; i++ {
		c, _ := favCtx(t, http.MethodPost, "/v1/users/me/favourites", `{"city":"Rome"}`)
		require.NoError(t, h.Add(c))
	}
	assert.Len(t, store.favs["u1"], 2)
}

func TestFavouritesAddRequiresCity(t *testing.T) {
	t.Parallel()
	h := NewFavouritesHandler(newFakeFavStore())

	c, rec := favCtx(t, http.MethodPost, "/v1/users/me/favourites", `{"city":"  "}`)
	require.NoError(t, h.Add(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
