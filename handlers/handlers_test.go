package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunmehta14/image-press/config"
	"github.com/arjunmehta14/image-press/database"
	"github.com/arjunmehta14/image-press/filestore"
	"github.com/arjunmehta14/image-press/handlers"
	middleware "github.com/arjunmehta14/image-press/middlewares"
	"github.com/arjunmehta14/image-press/models"
	"github.com/arjunmehta14/image-press/routes"
)

// envelope mirrors the JSON response wrapper with the payload left raw so
// each test can decode it into the expected shape.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t     *testing.T
	cfg   *config.Config
	store *database.Store
	files *filestore.Store
	mux   *http.ServeMux
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Port:                     "8080",
		LogLevel:                 "info",
		AuthSecretKey:            "test-auth-secret",
		SignedURLSecretKey:       "test-url-secret",
		AccessTokenExpireMinutes: 30,
		SignedURLExpireMinutes:   2,
		MaxFileSizeBytes:         50000000,
		MaxUserImages:            10,
		MaxCompressionsPerImage:  10,
		DBFilePath:               filepath.Join(dir, "db.json"),
		FilestorePath:            filepath.Join(dir, "filestore"),
	}

	store, err := database.Open(cfg.DBFilePath)
	require.NoError(t, err)
	files := filestore.New(cfg.FilestorePath)

	authMw := &middleware.Auth{Store: store, Key: []byte(cfg.AuthSecretKey)}
	mux := http.NewServeMux()
	routes.RegisterUserRoutes(mux, &handlers.UserHandler{Store: store, Config: cfg}, authMw)
	routes.RegisterImageRoutes(mux,
		&handlers.ImageHandler{Store: store, Files: files, Config: cfg},
		&handlers.CompressionHandler{Store: store, Files: files, Config: cfg},
		authMw)

	return &testApp{t: t, cfg: cfg, store: store, files: files, mux: mux}
}

func (a *testApp) do(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)

	var env envelope
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testApp) register(username, password string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	body, err := json.Marshal(models.RegisterForm{Username: username, Password: password})
	require.NoError(a.t, err)
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

// login registers the user if needed and returns a bearer token.
func (a *testApp) login(username, password string) string {
	a.t.Helper()
	a.register(username, password)

	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec, env := a.do(req)
	require.Equal(a.t, http.StatusOK, rec.Code)

	var token models.Token
	require.NoError(a.t, json.Unmarshal(env.Data, &token))
	require.NotEmpty(a.t, token.AccessToken)
	return token.AccessToken
}

func authedRequest(method, target, token string, body *bytes.Buffer) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// encodePNG renders a width x height gradient as PNG bytes.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartUpload builds a (body, content type) pair carrying the
// file_name field and a file part with an explicit part content type.
func multipartUpload(t *testing.T, fileName string, fileBytes []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("file_name", fileName))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(fileBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

// uploadPNG uploads a generated PNG and returns the recorded image.
func (a *testApp) uploadPNG(token, fileName string, width, height int) models.UserImage {
	a.t.Helper()
	body, contentType := multipartUpload(a.t, fileName, encodePNG(a.t, width, height), "image/png")

	req := authedRequest(http.MethodPut, "/image", token, body)
	req.Header.Set("Content-Type", contentType)

	rec, env := a.do(req)
	require.Equal(a.t, http.StatusOK, rec.Code, env.Message)

	var img models.UserImage
	require.NoError(a.t, json.Unmarshal(env.Data, &img))
	require.NotEmpty(a.t, img.ID)
	return img
}

// compress requests a compression of one image and returns the record.
func (a *testApp) compress(token, imageID, quality, resizeWidth string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	form := url.Values{"quality": {quality}}
	if resizeWidth != "" {
		form.Set("resize_width", resizeWidth)
	}
	req := authedRequest(http.MethodPut, "/image/"+imageID+"/image-compression", token,
		bytes.NewBufferString(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}
