package server

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		App: config.AppConfig{
			UploadDir:     t.TempDir(),
			MaxUploadSize: 1 << 20,
			RetentionMode: config.RetentionCalendar,
		},
	}
}

func jpegUpload(t *testing.T, filename string) *http.Request {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(fw, img, nil))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRouterEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := NewRouter(testConfig(t), zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jpegUpload(t, "Holiday Pic.JPG"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/uploads/Holiday_Pic.JPG", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/uploaded_img/Holiday_Pic.JPG", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, color.GrayModel, cfg.ColorModel)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `imgconv_uploads_total{outcome="converted"} 1`)
	assert.Contains(t, rec.Body.String(), "imgconv_conversion_duration_seconds")
}

func TestRequestIDHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := NewRouter(testConfig(t), zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	_, err = uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	sent := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, sent)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, sent, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(requestIDHeader))
}

func TestNewServer(t *testing.T) {
	cfg := testConfig(t)
	srv, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.httpServer.Addr)
}
