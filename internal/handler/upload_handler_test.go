package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartImage(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadImageStoresPNG(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/uploads", api.UploadImage, true)

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	body, contentType := multipartImage(t, "banner.png", encoded.Bytes())
	req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
			Format string `json:"format"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Data.Width)
	assert.Equal(t, 3, resp.Data.Height)
	assert.Equal(t, "png", resp.Data.Format)
	assert.True(t, strings.HasPrefix(resp.Data.URL, "/static/uploads/"))
	assert.True(t, strings.HasSuffix(resp.Data.URL, ".png"))

	_, err := os.Stat(filepath.Join(api.uploadDir, path.Base(resp.Data.URL)))
	assert.NoError(t, err)
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/uploads", api.UploadImage, true)

	body, contentType := multipartImage(t, "notes.png", []byte("definitely not an image"))
	req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	entries, err := os.ReadDir(api.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadImageRequiresFile(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/uploads", api.UploadImage, true)

	w := performJSON(r, http.MethodPost, "/admin/api/uploads", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImageRejectsOversizedBody(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newTestEngine(http.MethodPost, "/admin/api/uploads", api.UploadImage, true)

	oversized := bytes.Repeat([]byte{0x89}, maxUploadBytes+uploadEnvelopeBytes+1)

	t.Run("declared length", func(t *testing.T) {
		body, contentType := multipartImage(t, "huge.png", oversized)
		req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("streamed body", func(t *testing.T) {
		body, contentType := multipartImage(t, "huge.png", oversized)
		req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", io.NopCloser(io.MultiReader(body)))
		req.ContentLength = -1
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	entries, err := os.ReadDir(api.uploadDir)
	if err == nil {
		assert.Empty(t, entries)
	}
}
