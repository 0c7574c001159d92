package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) Upload(_ context.Context, _, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	_, _ = io.Copy(io.Discard, body)
	return f.url, nil
}

type fakeAvatarSaver struct {
	saved map[string]string
}

func (f *fakeAvatarSaver) SetAvatarURL(_ context.Context, id, url string) error {
	f.saved[id] = url
	return nil
}

func multipartImage(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not-a-real-png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func avatarCtx(t *testing.T, body *bytes.Buffer, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/users/me/avatar", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")
	return c, rec
}

func TestAvatarUpload(t *testing.T) {
	t.Parallel()
	saver := &fakeAvatarSaver{saved: map[string]string{}}
	h := NewAvatarHandler(&fakeUploader{url: "http://img.example/avatars/abc.png"}, saver)

	body, ct := multipartImage(t, "image")
	c, rec := avatarCtx(t, body, ct)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "http://img.example/avatars/abc.png", resp["avatar_url"])
	assert.Equal(t, "http://img.example/avatars/abc.png", saver.saved["u1"])
}

func TestAvatarUploadMissingField(t *testing.T) {
	t.Parallel()
	h := NewAvatarHandler(&fakeUploader{}, &fakeAvatarSaver{saved: map[string]string{}})

	body, ct := multipartImage(t, "picture")
	c, rec := avatarCtx(t, body, ct)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvatarUploadStoreFailure(t *testing.T) {
	t.Parallel()
	h := NewAvatarHandler(&fakeUploader{err: errors.New("bucket down")}, &fakeAvatarSaver{saved: map[string]string{}})

	body, ct := multipartImage(t, "image")
	c, rec := avatarCtx(t, body, ct)
	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
