package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunmehta14/image-press/models"
	"github.com/arjunmehta14/image-press/utils"
)

func TestUploadImage(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")

	img := app.uploadPNG(token, "vacation.png", 40, 20)

	assert.Equal(t, "vacation", img.Name)
	assert.Equal(t, "png", img.Extension)
	assert.Equal(t, 0, img.NumCompressions)
	assert.Contains(t, img.SignedURL, "/image?signature=")

	_, err := os.Stat(img.Path)
	require.NoError(t, err)
}

func TestUploadImageValidation(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")
	pngBytes := encodePNG(t, 10, 10)

	t.Run("short file name", func(t *testing.T) {
		body, contentType := multipartUpload(t, "ab", pngBytes, "image/png")
		req := authedRequest(http.MethodPut, "/image", token, body)
		req.Header.Set("Content-Type", contentType)

		rec, env := app.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "File name must be between 3 and 100 characters", env.Message)
	})

	t.Run("unsupported format", func(t *testing.T) {
		body, contentType := multipartUpload(t, "photo.bmp", pngBytes, "image/bmp")
		req := authedRequest(http.MethodPut, "/image", token, body)
		req.Header.Set("Content-Type", contentType)

		rec, env := app.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Unsupported image type: only jpeg, png and gif are accepted", env.Message)
	})

	t.Run("oversize file", func(t *testing.T) {
		app := newTestApp(t)
		app.cfg.MaxFileSizeBytes = 10
		token := app.login("bob", "hunter2")

		body, contentType := multipartUpload(t, "big.png", pngBytes, "image/png")
		req := authedRequest(http.MethodPut, "/image", token, body)
		req.Header.Set("Content-Type", contentType)

		rec, _ := app.do(req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("corrupt image bytes", func(t *testing.T) {
		body, contentType := multipartUpload(t, "fake.png", []byte("not an image"), "image/png")
		req := authedRequest(http.MethodPut, "/image", token, body)
		req.Header.Set("Content-Type", contentType)

		rec, _ := app.do(req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("no auth", func(t *testing.T) {
		body, contentType := multipartUpload(t, "vacation.png", pngBytes, "image/png")
		req := httptest.NewRequest(http.MethodPut, "/image", body)
		req.Header.Set("Content-Type", contentType)

		rec, _ := app.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUploadImageAccountLimit(t *testing.T) {
	app := newTestApp(t)
	app.cfg.MaxUserImages = 1
	token := app.login("alice", "hunter2")

	// The ceiling sits one past the configured maximum.
	app.uploadPNG(token, "first.png", 10, 10)
	app.uploadPNG(token, "second.png", 10, 10)

	body, contentType := multipartUpload(t, "third.png", encodePNG(t, 10, 10), "image/png")
	req := authedRequest(http.MethodPut, "/image", token, body)
	req.Header.Set("Content-Type", contentType)

	rec, env := app.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Image limit for this account has been reached", env.Message)
}

func TestListImages(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")

	first := app.uploadPNG(token, "first.png", 10, 10)
	second := app.uploadPNG(token, "second.png", 10, 10)

	rec, env := app.do(authedRequest(http.MethodGet, "/images", token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var images map[string]models.UserImage
	require.NoError(t, json.Unmarshal(env.Data, &images))
	require.Len(t, images, 2)
	assert.Contains(t, images, first.ID)
	assert.Contains(t, images, second.ID)
	for _, img := range images {
		assert.Contains(t, img.SignedURL, "/image?signature=")
	}
}

func TestGetImage(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")
	img := app.uploadPNG(token, "vacation.png", 10, 10)

	rec, env := app.do(authedRequest(http.MethodGet, "/image/"+img.ID, token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.UserImage
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, img.ID, got.ID)

	rec, _ = app.do(authedRequest(http.MethodGet, "/image/unknown", token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImageOwnership(t *testing.T) {
	app := newTestApp(t)
	aliceToken := app.login("alice", "hunter2")
	bobToken := app.login("bob", "hunter2")

	img := app.uploadPNG(aliceToken, "vacation.png", 10, 10)

	rec, env := app.do(authedRequest(http.MethodGet, "/image/"+img.ID, bobToken, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not own this image", env.Message)

	rec, _ = app.do(authedRequest(http.MethodDelete, "/image/"+img.ID, bobToken, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The failed delete touched neither the file nor the record.
	_, err := os.Stat(img.Path)
	require.NoError(t, err)
	rec, _ = app.do(authedRequest(http.MethodGet, "/image/"+img.ID, aliceToken, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteImage(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")
	img := app.uploadPNG(token, "vacation.png", 10, 10)

	rec, _ := app.do(authedRequest(http.MethodDelete, "/image/"+img.ID, token, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := os.Stat(img.Path)
	assert.True(t, os.IsNotExist(err))

	rec, _ = app.do(authedRequest(http.MethodDelete, "/image/"+img.ID, token, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteImageWithMissingFile(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")
	img := app.uploadPNG(token, "vacation.png", 10, 10)

	require.NoError(t, os.Remove(img.Path))

	rec, _ := app.do(authedRequest(http.MethodDelete, "/image/"+img.ID, token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeSignedImage(t *testing.T) {
	app := newTestApp(t)
	token := app.login("alice", "hunter2")
	img := app.uploadPNG(token, "vacation.png", 10, 10)

	t.Run("valid signature serves the file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, img.SignedURL, nil)
		rec := httptest.NewRecorder()
		app.mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Body.Bytes())
	})

	t.Run("missing signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/image", nil)
		rec, env := app.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Signature is required", env.Message)
	})

	t.Run("tampered signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, img.SignedURL+"xx", nil)
		rec, env := app.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Could not validate credentials", env.Message)
	})

	t.Run("expired signature", func(t *testing.T) {
		expiredURL, err := utils.SignImageURL(img, -time.Minute, []byte(app.cfg.SignedURLSecretKey))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, expiredURL, nil)
		rec, env := app.do(req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Link expired", env.Message)
	})

	t.Run("signature for a deleted image", func(t *testing.T) {
		app := newTestApp(t)
		token := app.login("carol", "hunter2")
		img := app.uploadPNG(token, "temp.png", 10, 10)

		rec, _ := app.do(authedRequest(http.MethodDelete, "/image/"+img.ID, token, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		req := httptest.NewRequest(http.MethodGet, img.SignedURL, nil)
		rec, env := app.do(req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Image not found", env.Message)
	})
}
